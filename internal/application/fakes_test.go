package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/repository"
	"github.com/SARVESHVARADKAR123/messenger/internal/tx"
	"github.com/stretchr/testify/mock"
)

// MockTransactor runs fn without a real transaction.
type MockTransactor struct{}

func (m *MockTransactor) WithTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return fn(ctx, nil)
}

var _ tx.Transactor = (*MockTransactor)(nil)

// memRepo is a stateful in-memory Repository. It does not roll back, which is
// enough for the flows under test: every write is the last step of its unit.
type memRepo struct {
	mu            sync.Mutex
	users         map[string]domain.User
	convs         map[string]*domain.Conversation
	privateKeys   map[string]string
	messages      map[string]*domain.Message
	attachments   map[string]domain.Attachment
	failCreateMsg error
	invalidated   []string

	// beforeCreate simulates a concurrent writer winning the race.
	beforeCreate func(c *domain.Conversation, key *string)
}

var _ repository.Repository = (*memRepo)(nil)

func newMemRepo(users ...string) *memRepo {
	r := &memRepo{
		users:       make(map[string]domain.User),
		convs:       make(map[string]*domain.Conversation),
		privateKeys: make(map[string]string),
		messages:    make(map[string]*domain.Message),
		attachments: make(map[string]domain.Attachment),
	}
	for _, id := range users {
		r.users[id] = domain.User{ID: id, Username: id}
	}
	return r
}

func cloneConv(c *domain.Conversation) *domain.Conversation {
	cp := *c
	cp.Members = append([]domain.Member(nil), c.Members...)
	return &cp
}

func (r *memRepo) CreateConversation(ctx context.Context, tx *sql.Tx, c *domain.Conversation, privateKey *string) error {
	if r.beforeCreate != nil {
		r.beforeCreate(c, privateKey)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if privateKey != nil {
		if _, ok := r.privateKeys[*privateKey]; ok {
			return repository.ErrUniqueViolation
		}
		r.privateKeys[*privateKey] = c.ID
	}
	cp := cloneConv(c)
	cp.Members = nil
	r.convs[c.ID] = cp
	return nil
}

func (r *memRepo) GetConversation(ctx context.Context, tx *sql.Tx, id string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return nil, domain.NewNotFoundError(domain.ResourceConversation, id)
	}
	return cloneConv(c), nil
}

func (r *memRepo) GetConversationForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.Conversation, error) {
	return r.GetConversation(ctx, tx, id)
}

func (r *memRepo) FindPrivateConversationBetween(ctx context.Context, tx *sql.Tx, a, b string) (*domain.Conversation, error) {
	r.mu.Lock()
	id, ok := r.privateKeys[domain.PrivateKey(a, b)]
	r.mu.Unlock()
	if !ok {
		return nil, domain.NewNotFoundError(domain.ResourceConversation, domain.PrivateKey(a, b))
	}
	return r.GetConversation(ctx, tx, id)
}

func (r *memRepo) ListConversations(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Conversation
	for _, c := range r.convs {
		if _, ok := c.Member(userID); ok {
			out = append(out, cloneConv(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	return out, nil
}

func (r *memRepo) ListAllConversations(ctx context.Context, f repository.ConversationFilter) ([]*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Conversation
	for _, c := range r.convs {
		if f.Type == "" || c.Type == f.Type {
			out = append(out, cloneConv(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepo) TouchLastMessageAt(ctx context.Context, tx *sql.Tx, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.convs[id]; ok && at.After(c.LastMessageAt) {
		c.LastMessageAt = at
	}
	return nil
}

func (r *memRepo) DeleteConversation(ctx context.Context, tx *sql.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.convs[id]; !ok {
		return domain.NewNotFoundError(domain.ResourceConversation, id)
	}
	delete(r.convs, id)
	for k, v := range r.privateKeys {
		if v == id {
			delete(r.privateKeys, k)
		}
	}
	return nil
}

func (r *memRepo) InvalidateConversation(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, id)
	return nil
}

func (r *memRepo) AddMember(ctx context.Context, tx *sql.Tx, m domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[m.ConversationID]
	if !ok {
		return domain.NewNotFoundError(domain.ResourceConversation, m.ConversationID)
	}
	if _, ok := c.Member(m.UserID); ok {
		return repository.ErrUniqueViolation
	}
	c.Members = append(c.Members, m)
	return nil
}

func (r *memRepo) RemoveMember(ctx context.Context, tx *sql.Tx, convID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[convID]
	if !ok {
		return domain.NewNotFoundError(domain.ResourceConversation, convID)
	}
	for i, m := range c.Members {
		if m.UserID == userID {
			c.Members = append(c.Members[:i], c.Members[i+1:]...)
			return nil
		}
	}
	return domain.NewNotFoundError(domain.ResourceMember, userID)
}

func (r *memRepo) ListMembers(ctx context.Context, tx *sql.Tx, convID string) ([]domain.Member, error) {
	c, err := r.GetConversation(ctx, tx, convID)
	if err != nil {
		return nil, err
	}
	return c.Members, nil
}

func (r *memRepo) CreateMessage(ctx context.Context, tx *sql.Tx, m *domain.Message) error {
	if r.failCreateMsg != nil {
		return r.failCreateMsg
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := m.Snapshot()
	cp.Attachments = nil
	r.messages[m.ID] = &cp
	return nil
}

func (r *memRepo) withAttachments(m *domain.Message) *domain.Message {
	cp := m.Snapshot()
	cp.Attachments = nil
	for _, a := range r.attachments {
		if a.MessageID == m.ID {
			cp.Attachments = append(cp.Attachments, a)
		}
	}
	sort.Slice(cp.Attachments, func(i, j int) bool { return cp.Attachments[i].FileName < cp.Attachments[j].FileName })
	return &cp
}

func (r *memRepo) GetMessage(ctx context.Context, tx *sql.Tx, id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, domain.NewNotFoundError(domain.ResourceMessage, id)
	}
	return r.withAttachments(m), nil
}

func (r *memRepo) GetMessageForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.Message, error) {
	return r.GetMessage(ctx, tx, id)
}

func (r *memRepo) UpdateMessage(ctx context.Context, tx *sql.Tx, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[m.ID]; !ok {
		return domain.NewNotFoundError(domain.ResourceMessage, m.ID)
	}
	cp := m.Snapshot()
	cp.Attachments = nil
	r.messages[m.ID] = &cp
	return nil
}

func (r *memRepo) DeleteMessage(ctx context.Context, tx *sql.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[id]; !ok {
		return domain.NewNotFoundError(domain.ResourceMessage, id)
	}
	delete(r.messages, id)
	return nil
}

func (r *memRepo) ListMessages(ctx context.Context, convID string) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Message
	for _, m := range r.messages {
		if m.ConversationID == convID {
			out = append(out, r.withAttachments(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SentAt.Before(out[j].SentAt)
	})
	return out, nil
}

func (r *memRepo) ListMessageIDs(ctx context.Context, tx *sql.Tx, convID string) ([]string, error) {
	msgs, _ := r.ListMessages(ctx, convID)
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (r *memRepo) CreateAttachment(ctx context.Context, tx *sql.Tx, a *domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attachments[a.ID] = *a
	return nil
}

func (r *memRepo) GetAttachment(ctx context.Context, tx *sql.Tx, id string) (*domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attachments[id]
	if !ok {
		return nil, domain.NewNotFoundError(domain.ResourceAttachment, id)
	}
	return &a, nil
}

func (r *memRepo) ListAttachments(ctx context.Context, tx *sql.Tx, msgID string) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Attachment
	for _, a := range r.attachments {
		if a.MessageID == msgID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) ListAttachmentsByConversation(ctx context.Context, tx *sql.Tx, convID string) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Attachment
	for _, a := range r.attachments {
		if m, ok := r.messages[a.MessageID]; ok && m.ConversationID == convID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) DeleteAttachment(ctx context.Context, tx *sql.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attachments, id)
	return nil
}

func (r *memRepo) GetUsers(ctx context.Context, ids []string) (map[string]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]domain.User)
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (r *memRepo) messageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

// memStorage keeps objects in a map and can fail on the n-th Store.
type memStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	seq       int
	failStore int
	failErr   error
	deleteErr error
	deleted   []string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (s *memStorage) Store(ctx context.Context, r io.Reader, size int64, name, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if s.failStore != 0 && s.seq == s.failStore {
		return "", &domain.StorageError{Op: "store", Err: s.failErr}
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	loc := fmt.Sprintf("attachments/%d-%s", s.seq, name)
	s.objects[loc] = b
	return loc, nil
}

func (s *memStorage) URLFor(ctx context.Context, locator string, ttl time.Duration, downloadName string) (string, error) {
	return fmt.Sprintf("https://files.local/%s?ttl=%d&dl=%s", locator, int(ttl.Seconds()), downloadName), nil
}

func (s *memStorage) Delete(ctx context.Context, locator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, locator)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, locator)
	return nil
}

func (s *memStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// recordingBus captures published events.
type recordingBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *recordingBus) Publish(ctx context.Context, topic string, ev domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *recordingBus) types() []domain.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.EventType, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Type)
	}
	return out
}

// MockPublisher is a testify mock for Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, ev domain.Event) error {
	return m.Called(ctx, topic, ev).Error(0)
}

var errBoom = errors.New("boom")

type harness struct {
	svc   *Service
	repo  *memRepo
	store *memStorage
	bus   *recordingBus
	clock time.Time
}

func newHarness(users ...string) *harness {
	h := &harness{
		repo:  newMemRepo(users...),
		store: newMemStorage(),
		bus:   &recordingBus{},
		clock: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
	h.svc = New(h.repo, &MockTransactor{}, h.store, h.bus, nil)
	h.svc.now = func() time.Time {
		h.clock = h.clock.Add(time.Second)
		return h.clock
	}
	return h
}
