// Package stub is an in-memory implementation of the atende backend REST
// contract. It exists for local development of the console and for the
// integration tests; it is not the production backend.
package stub

import (
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/atendehq/atende/internal/api"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mediaObject struct {
	data        []byte
	contentType string
}

// Server holds the stub backend state. All mutation goes through mu.
type Server struct {
	logger *zap.Logger

	// AutoReply makes the stub answer every operator message with a canned
	// client reply, which keeps the sync engine busy during development.
	AutoReply bool

	mu        sync.Mutex
	convs     map[int64]*api.Conversation
	msgs      map[int64][]api.Message
	lastMsgID map[int64]int64
	media     map[string]mediaObject
}

// New creates an empty stub server.
func New(logger *zap.Logger) *Server {
	return &Server{
		logger:    logger,
		convs:     make(map[int64]*api.Conversation),
		msgs:      make(map[int64][]api.Message),
		lastMsgID: make(map[int64]int64),
		media:     make(map[string]mediaObject),
	}
}

// Router builds the chi router exposing the backend contract.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Get("/conversations", s.listConversations)
		v1.Route("/conversations/{id}", func(cr chi.Router) {
			cr.Get("/messages", s.listMessages)
			cr.Post("/messages", s.sendText)
			cr.Post("/media", s.sendMedia)
			cr.Post("/read", s.markRead)
			cr.Post("/mode", s.setMode)
			cr.Post("/bot/reset", s.resetBot)
		})
		v1.Get("/media/{mediaID}", s.fetchMedia)
	})
	return r
}

// Seed installs a small demo data set.
func (s *Server) Seed() {
	now := time.Now().UnixMilli()

	s.AddConversation(api.Conversation{
		ID: 1, ClientName: "Mariana Duarte", Phone: "+55 11 98877-1234",
		BotActive: true, UnreadCount: 2,
	})
	s.AddConversation(api.Conversation{
		ID: 2, ClientName: "Buffet Jardim Azul", Phone: "+55 21 97301-0088",
		BotActive: false,
	})
	s.AddConversation(api.Conversation{
		ID: 3, ClientName: "Ricardo Tavares", Phone: "+55 31 99654-4410",
		BotActive: true, RequiresReengagement: true,
	})

	s.AddMessage(1, api.Message{Direction: api.DirectionIn, Text: "Olá! Vocês têm disponibilidade para dia 12?", CreatedAt: now - 600_000})
	s.AddMessage(1, api.Message{Direction: api.DirectionOut, Text: "Temos sim! Qual o número de convidados?", Delivery: api.DeliveryRead, CreatedAt: now - 540_000})
	s.AddMessage(1, api.Message{Direction: api.DirectionIn, Text: "Por volta de 80 pessoas.", CreatedAt: now - 60_000})
	s.AddMessage(2, api.Message{Direction: api.DirectionIn, Text: "Segue o contrato assinado.", CreatedAt: now - 3_600_000})
	s.AddMessage(3, api.Message{Direction: api.DirectionOut, Text: "Ficamos no aguardo do seu retorno!", Delivery: api.DeliveryDelivered, CreatedAt: now - 90_000_000})
}

// AddConversation installs a conversation, keeping provided fields.
func (s *Server) AddConversation(c api.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cc := c
	s.convs[c.ID] = &cc
}

// AddMessage appends a message to a conversation thread, assigning the next
// monotonic id and updating the conversation preview.
func (s *Server) AddMessage(conversationID int64, m api.Message) api.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addMessageLocked(conversationID, m)
}

func (s *Server) addMessageLocked(conversationID int64, m api.Message) api.Message {
	s.lastMsgID[conversationID]++
	m.ID = s.lastMsgID[conversationID]
	m.ConversationID = conversationID
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().UnixMilli()
	}
	s.msgs[conversationID] = append(s.msgs[conversationID], m)

	if c, ok := s.convs[conversationID]; ok {
		c.LastMessagePreview = truncate(m.Text, 100)
		c.LastMessageAt = m.CreatedAt
		if m.Direction == api.DirectionIn {
			c.UnreadCount++
		}
	}
	return m
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]conversationJSON, 0, len(s.convs))
	for _, c := range s.convs {
		out = append(out, conversationToWire(*c))
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt > out[j].LastMessageAt })
	render.JSON(w, r, out)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := s.conversationID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	msgs := s.msgs[id]
	out := make([]messageJSON, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageToWire(m))
	}
	s.mu.Unlock()
	render.JSON(w, r, out)
}

func (s *Server) sendText(w http.ResponseWriter, r *http.Request) {
	id, ok := s.conversationID(w, r)
	if !ok {
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := render.DecodeJSON(r.Body, &body); err != nil || body.Text == "" {
		httpError(w, r, http.StatusBadRequest, "text is required")
		return
	}

	s.mu.Lock()
	msg := s.addMessageLocked(id, api.Message{
		Direction: api.DirectionOut,
		Text:      body.Text,
		Delivery:  api.DeliverySent,
	})
	if s.AutoReply && s.convs[id].BotActive {
		s.addMessageLocked(id, api.Message{
			Direction: api.DirectionIn,
			Text:      "Entendido, obrigado!",
		})
	}
	s.mu.Unlock()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, messageToWire(msg))
}

func (s *Server) sendMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := s.conversationID(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httpError(w, r, http.StatusBadRequest, "invalid multipart body")
		return
	}
	kind := api.MediaKind(r.FormValue("kind"))
	switch kind {
	case api.MediaImage, api.MediaAudio, api.MediaDocument:
	default:
		httpError(w, r, http.StatusBadRequest, "unknown media kind")
		return
	}
	caption := r.FormValue("caption")
	if caption != "" && kind == api.MediaAudio {
		httpError(w, r, http.StatusBadRequest, "audio messages cannot carry a caption")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpError(w, r, http.StatusBadRequest, "file is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		httpError(w, r, http.StatusBadRequest, "read file")
		return
	}

	mediaID := uuid.New().String()
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	s.mu.Lock()
	s.media[mediaID] = mediaObject{data: data, contentType: contentType}
	msg := s.addMessageLocked(id, api.Message{
		Direction: api.DirectionOut,
		Text:      caption,
		MediaKind: kind,
		MediaID:   mediaID,
		Delivery:  api.DeliverySent,
	})
	s.mu.Unlock()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, messageToWire(msg))
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	id, ok := s.conversationID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	if c, found := s.convs[id]; found {
		c.UnreadCount = 0
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setMode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.conversationID(w, r)
	if !ok {
		return
	}
	var body struct {
		Mode string `json:"mode"`
	}
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		httpError(w, r, http.StatusBadRequest, "invalid body")
		return
	}
	mode := api.Mode(body.Mode)
	if mode != api.ModeBot && mode != api.ModeHuman {
		httpError(w, r, http.StatusBadRequest, "mode must be bot or human")
		return
	}
	s.mu.Lock()
	if c, found := s.convs[id]; found {
		c.BotActive = mode == api.ModeBot
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resetBot(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.conversationID(w, r); !ok {
		return
	}
	// The real backend restarts the bot's dialogue state; the stub has none.
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fetchMedia(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")
	s.mu.Lock()
	obj, found := s.media[mediaID]
	s.mu.Unlock()
	if !found {
		httpError(w, r, http.StatusNotFound, "media not found")
		return
	}
	w.Header().Set("Content-Type", obj.contentType)
	_, _ = w.Write(obj.data)
}

// AddMedia registers a binary resource directly, returning its id.
func (s *Server) AddMedia(data []byte, contentType string) string {
	id := uuid.New().String()
	s.mu.Lock()
	s.media[id] = mediaObject{data: data, contentType: contentType}
	s.mu.Unlock()
	return id
}

func (s *Server) conversationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpError(w, r, http.StatusBadRequest, "invalid conversation id")
		return 0, false
	}
	s.mu.Lock()
	_, found := s.convs[id]
	s.mu.Unlock()
	if !found {
		httpError(w, r, http.StatusNotFound, "conversation not found")
		return 0, false
	}
	return id, true
}

func httpError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// truncate cuts s to at most maxLen bytes, backing up to a rune boundary so
// the preview stays valid UTF-8.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
