// Package devstub is an in-memory stand-in for the marketplace chat
// backend: the three REST endpoints with their response envelope, plus
// the websocket push channel. It exists for local development and for
// integration tests; it is not a production server.
package devstub

import (
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chat-client/internal/models"
)

type user struct {
	ID        int
	FirstName string
	LastName  string
	Image     string
}

type storedMessage struct {
	ID         int
	SenderID   int
	ReceiverID int
	Content    string
	CreatedAt  time.Time
}

// Server holds the stub's in-memory state.
type Server struct {
	mu       sync.Mutex
	users    map[int]user
	tokens   map[string]int
	messages []storedMessage
	lastRead map[int]map[int]int
	nextID   int
	clock    func() time.Time

	connMu sync.Mutex
	conns  map[int][]*websocket.Conn
}

// NewServer builds an empty stub. clock may be nil for time.Now.
func NewServer(clock func() time.Time) *Server {
	if clock == nil {
		clock = time.Now
	}
	return &Server{
		users:    map[int]user{},
		tokens:   map[string]int{},
		lastRead: map[int]map[int]int{},
		nextID:   1,
		clock:    clock,
		conns:    map[int][]*websocket.Conn{},
	}
}

// AddUser registers a user and the bearer token that authenticates it.
func (s *Server) AddUser(id int, firstName, lastName, image, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = user{ID: id, FirstName: firstName, LastName: lastName, Image: image}
	if token != "" {
		s.tokens[token] = id
	}
}

// SeedMessage inserts a message directly, bypassing the send endpoint.
func (s *Server) SeedMessage(senderID, receiverID int, content string, createdAt time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeMessage(senderID, receiverID, content, createdAt).ID
}

// SeedDemo loads the demo data set used by the stub verb: a demo user
// behind token and a provider with a short history.
func (s *Server) SeedDemo(token string) {
	s.AddUser(1, "Demo", "User", "", token)
	s.AddUser(2, "Aarav", "Motors", "", "provider-token")
	now := s.clock()
	s.SeedMessage(2, 1, "Hello! Your car is ready for pickup.", now.Add(-26*time.Hour))
	s.SeedMessage(1, 2, "Great, I will come by tomorrow morning.", now.Add(-25*time.Hour))
	s.SeedMessage(2, 1, "See you then.", now.Add(-10*time.Minute))
}

// Router wires the REST and websocket routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	auth := s.authMiddleware()
	router.GET("/api/chat/", auth, s.listConversations)
	router.GET("/api/chat/:peerId", auth, s.listMessages)
	router.POST("/api/chat/send", auth, s.sendMessage)
	router.GET("/ws/chat", auth, s.handleWS)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// Run serves the stub until the listener fails.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			fail(c, http.StatusUnauthorized, "missing or invalid token")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			fail(c, http.StatusUnauthorized, "missing or invalid token")
			c.Abort()
			return
		}

		s.mu.Lock()
		userID, found := s.tokens[parts[1]]
		s.mu.Unlock()
		if !found {
			fail(c, http.StatusUnauthorized, "missing or invalid token")
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}

func (s *Server) listConversations(c *gin.Context) {
	userID := c.GetInt("userID")

	s.mu.Lock()
	defer s.mu.Unlock()

	type thread struct {
		peerID int
		last   storedMessage
		unread int
	}
	threads := map[int]*thread{}
	for _, msg := range s.messages {
		peerID := 0
		switch userID {
		case msg.SenderID:
			peerID = msg.ReceiverID
		case msg.ReceiverID:
			peerID = msg.SenderID
		default:
			continue
		}
		th, found := threads[peerID]
		if !found {
			th = &thread{peerID: peerID}
			threads[peerID] = th
		}
		th.last = msg
		if msg.SenderID == peerID && msg.ID > s.readMark(userID, peerID) {
			th.unread++
		}
	}

	records := make([]models.ConversationRecord, 0, len(threads))
	for _, th := range threads {
		peer := s.users[th.peerID]
		records = append(records, models.ConversationRecord{
			ChatID:          chatID(userID, th.peerID),
			UserID:          th.peerID,
			FirstName:       peer.FirstName,
			LastName:        peer.LastName,
			Image:           peer.Image,
			LastMessage:     th.last.Content,
			LastMessageTime: th.last.CreatedAt,
			UnreadCount:     th.unread,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].LastMessageTime.After(records[j].LastMessageTime)
	})

	ok(c, http.StatusOK, records)
}

func (s *Server) listMessages(c *gin.Context) {
	peerID, err := strconv.Atoi(c.Param("peerId"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid peer id")
		return
	}
	userID := c.GetInt("userID")

	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]models.MessageRecord, 0)
	maxID := s.readMark(userID, peerID)
	for _, msg := range s.messages {
		if (msg.SenderID == userID && msg.ReceiverID == peerID) ||
			(msg.SenderID == peerID && msg.ReceiverID == userID) {
			records = append(records, wireMessage(msg))
			if msg.ID > maxID {
				maxID = msg.ID
			}
		}
	}
	s.markRead(userID, peerID, maxID)

	ok(c, http.StatusOK, records)
}

func (s *Server) sendMessage(c *gin.Context) {
	var req struct {
		Content    string `json:"content" binding:"required"`
		ReceiverID int    `json:"receiverId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	userID := c.GetInt("userID")

	s.mu.Lock()
	if _, found := s.users[req.ReceiverID]; !found {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "receiver not found")
		return
	}
	msg := s.storeMessage(userID, req.ReceiverID, req.Content, s.clock())
	s.mu.Unlock()

	record := wireMessage(msg)
	s.broadcast(msg.SenderID, record)
	s.broadcast(msg.ReceiverID, record)

	ok(c, http.StatusCreated, record)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleWS(c *gin.Context) {
	userID := c.GetInt("userID")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	s.connMu.Lock()
	s.conns[userID] = append(s.conns[userID], conn)
	s.connMu.Unlock()

	go func() {
		defer func() {
			s.removeConn(userID, conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Subscribers reports how many websocket connections userID currently
// has registered. Dialers can poll it to know their subscription is
// live before triggering a broadcast.
func (s *Server) Subscribers(userID int) int {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return len(s.conns[userID])
}

func (s *Server) broadcast(userID int, record models.MessageRecord) {
	event := models.ChatEvent{Type: "message", Message: &record}

	s.connMu.Lock()
	conns := append([]*websocket.Conn(nil), s.conns[userID]...)
	s.connMu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("stub websocket write error: %v", err)
			conn.Close()
			s.removeConn(userID, conn)
		}
	}
}

func (s *Server) removeConn(userID int, conn *websocket.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	kept := s.conns[userID][:0]
	for _, existing := range s.conns[userID] {
		if existing != conn {
			kept = append(kept, existing)
		}
	}
	if len(kept) == 0 {
		delete(s.conns, userID)
		return
	}
	s.conns[userID] = kept
}

// storeMessage assumes s.mu is held.
func (s *Server) storeMessage(senderID, receiverID int, content string, createdAt time.Time) storedMessage {
	msg := storedMessage{
		ID:         s.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  createdAt,
	}
	s.nextID++
	s.messages = append(s.messages, msg)
	return msg
}

// readMark assumes s.mu is held.
func (s *Server) readMark(userID, peerID int) int {
	if marks, found := s.lastRead[userID]; found {
		return marks[peerID]
	}
	return 0
}

// markRead assumes s.mu is held.
func (s *Server) markRead(userID, peerID, messageID int) {
	marks, found := s.lastRead[userID]
	if !found {
		marks = map[int]int{}
		s.lastRead[userID] = marks
	}
	marks[peerID] = messageID
}

func wireMessage(msg storedMessage) models.MessageRecord {
	return models.MessageRecord{
		ID:        msg.ID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

// chatID derives a stable id for an unordered user pair.
func chatID(a, b int) int {
	if a > b {
		a, b = b, a
	}
	return a*100000 + b
}
