package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/shopbot/internal/domain"
	"github.com/spec-kit/shopbot/internal/platform"
)

type fakeTicketRepo struct {
	nextID    int64
	open      map[string]*domain.Ticket
	bindings  map[string]*domain.TicketChannel
	bound     []domain.TicketChannel
	closed    []int64
	createErr error
	bindErr   error
	closeErr  error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		nextID:   41,
		open:     map[string]*domain.Ticket{},
		bindings: map[string]*domain.TicketChannel{},
	}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	ticket.ID = f.nextID
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, _ int64) (*domain.Ticket, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketRepo) GetOpenByOpener(_ context.Context, openerID string) (*domain.Ticket, error) {
	if ticket, ok := f.open[openerID]; ok {
		return ticket, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketRepo) BindChannel(_ context.Context, binding domain.TicketChannel) error {
	if f.bindErr != nil {
		return f.bindErr
	}
	f.bound = append(f.bound, binding)
	f.bindings[binding.ChannelID] = &binding
	return nil
}

func (f *fakeTicketRepo) ChannelOwnership(_ context.Context, channelID string) (*domain.TicketChannel, error) {
	if binding, ok := f.bindings[channelID]; ok {
		return binding, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketRepo) Close(_ context.Context, id int64, _ time.Time) error {
	if f.closeErr != nil {
		return f.closeErr
	}
	f.closed = append(f.closed, id)
	return nil
}

func (f *fakeTicketRepo) List(_ context.Context, _, _ int) ([]domain.Ticket, error) {
	return nil, nil
}

type fakeChannels struct {
	created   []platform.TicketChannelSpec
	deleted   []string
	missing   map[string]bool
	createErr error
}

func (f *fakeChannels) CreateTicketChannel(_ context.Context, spec platform.TicketChannelSpec) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, spec)
	return "chan-new", nil
}

func (f *fakeChannels) ChannelExists(_ context.Context, channelID string) bool {
	return !f.missing[channelID]
}

func (f *fakeChannels) DeleteChannel(_ context.Context, channelID string) error {
	f.deleted = append(f.deleted, channelID)
	return nil
}

type fakeChannelMessenger struct {
	sent []*discordgo.MessageSend
}

func (f *fakeChannelMessenger) Send(_ context.Context, _ string, data *discordgo.MessageSend) (string, error) {
	f.sent = append(f.sent, data)
	return "msg-1", nil
}

type ticketFixture struct {
	service   *TicketService
	repo      *fakeTicketRepo
	channels  *fakeChannels
	messenger *fakeChannelMessenger
}

func newTicketFixture() *ticketFixture {
	f := &ticketFixture{
		repo:      newFakeTicketRepo(),
		channels:  &fakeChannels{},
		messenger: &fakeChannelMessenger{},
	}
	f.service = NewTicketService(TicketDependencies{
		TicketRepo:   f.repo,
		Channels:     f.channels,
		Messenger:    f.messenger,
		CategoryID:   "cat-1",
		StaffRoleIDs: []string{"role-staff"},
		Logger:       zap.NewNop(),
	})
	return f
}

func TestOpenTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the existing open ticket channel", func(t *testing.T) {
		f := newTicketFixture()
		existing := "chan-old"
		f.repo.open["opener"] = &domain.Ticket{ID: 7, OpenerID: "opener", Status: domain.TicketStatusOpen, ChannelID: &existing}

		channelID, reused, err := f.service.OpenTicket(ctx, "opener", "opener")
		require.NoError(t, err)
		assert.True(t, reused)
		assert.Equal(t, "chan-old", channelID)
		assert.Empty(t, f.channels.created)
	})

	t.Run("creates the row, the channel, and the instructions", func(t *testing.T) {
		f := newTicketFixture()
		channelID, reused, err := f.service.OpenTicket(ctx, "opener", "opener")
		require.NoError(t, err)
		assert.False(t, reused)
		assert.Equal(t, "chan-new", channelID)

		require.Len(t, f.channels.created, 1)
		spec := f.channels.created[0]
		assert.Equal(t, "ticket-0042", spec.Name)
		assert.Equal(t, "cat-1", spec.CategoryID)
		assert.Equal(t, "opener", spec.OpenerID)
		assert.Equal(t, []string{"role-staff"}, spec.StaffRoleIDs)

		require.Len(t, f.repo.bound, 1)
		assert.Equal(t, int64(42), f.repo.bound[0].TicketID)
		assert.Equal(t, "chan-new", f.repo.bound[0].ChannelID)

		require.Len(t, f.messenger.sent, 1)
		intro := f.messenger.sent[0]
		assert.Contains(t, intro.Content, "<@&role-staff>")
		assert.Contains(t, intro.Content, "<@opener>")
		require.NotEmpty(t, intro.Components)
	})

	t.Run("a deleted channel is never handed back", func(t *testing.T) {
		f := newTicketFixture()
		stale := "chan-gone"
		f.repo.open["opener"] = &domain.Ticket{ID: 7, OpenerID: "opener", Status: domain.TicketStatusOpen, ChannelID: &stale}
		f.channels.missing = map[string]bool{"chan-gone": true}

		channelID, reused, err := f.service.OpenTicket(ctx, "opener", "opener")
		require.NoError(t, err)
		assert.False(t, reused)
		assert.Equal(t, "chan-new", channelID)
		require.Len(t, f.channels.created, 1)
		assert.Equal(t, []int64{7}, f.repo.closed)
	})

	t.Run("a failed insert still yields a channel", func(t *testing.T) {
		f := newTicketFixture()
		f.repo.createErr = errors.New("db down")
		channelID, reused, err := f.service.OpenTicket(ctx, "opener", "opener")
		require.NoError(t, err)
		assert.False(t, reused)
		assert.Equal(t, "chan-new", channelID)
		assert.Empty(t, f.repo.bound)
	})

	t.Run("channel creation failure is returned", func(t *testing.T) {
		f := newTicketFixture()
		f.channels.createErr = errors.New("missing permissions")
		_, _, err := f.service.OpenTicket(ctx, "opener", "opener")
		require.Error(t, err)
		assert.Empty(t, f.messenger.sent)
	})
}

func TestCloseTicket(t *testing.T) {
	ctx := context.Background()

	bound := func(f *ticketFixture) {
		f.repo.bindings["chan-7"] = &domain.TicketChannel{ChannelID: "chan-7", TicketID: 7, OpenerID: "opener"}
	}

	t.Run("rejects channels that hold no ticket", func(t *testing.T) {
		f := newTicketFixture()
		err := f.service.CloseTicket(ctx, "chan-x", member("opener", "opener"), "opener", "opener")
		assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
	})

	t.Run("rejects outsiders without side effects", func(t *testing.T) {
		f := newTicketFixture()
		bound(f)
		err := f.service.CloseTicket(ctx, "chan-7", member("stranger", "stranger"), "stranger", "stranger")
		assert.Equal(t, "FORBIDDEN", errCode(t, err))
		assert.Empty(t, f.repo.closed)
		assert.Empty(t, f.channels.deleted)
	})

	t.Run("the opener may close", func(t *testing.T) {
		f := newTicketFixture()
		bound(f)
		err := f.service.CloseTicket(ctx, "chan-7", member("opener", "opener"), "opener", "opener")
		require.NoError(t, err)
		assert.Equal(t, []int64{7}, f.repo.closed)
		assert.Equal(t, []string{"chan-7"}, f.channels.deleted)
	})

	t.Run("staff may close anyone's ticket", func(t *testing.T) {
		f := newTicketFixture()
		bound(f)
		err := f.service.CloseTicket(ctx, "chan-7", member("mod", "mod", "role-staff"), "mod", "mod")
		require.NoError(t, err)
		assert.Equal(t, []int64{7}, f.repo.closed)
	})

	t.Run("authorization alone changes nothing", func(t *testing.T) {
		f := newTicketFixture()
		bound(f)

		_, err := f.service.AuthorizeClose(ctx, "chan-7", member("stranger", "stranger"), "stranger")
		assert.Equal(t, "FORBIDDEN", errCode(t, err))

		binding, err := f.service.AuthorizeClose(ctx, "chan-7", member("opener", "opener"), "opener")
		require.NoError(t, err)
		assert.Equal(t, int64(7), binding.TicketID)

		assert.Empty(t, f.repo.closed)
		assert.Empty(t, f.channels.deleted)
	})

	t.Run("the channel is deleted even when the row update fails", func(t *testing.T) {
		f := newTicketFixture()
		bound(f)
		f.repo.closeErr = errors.New("db down")
		err := f.service.CloseTicket(ctx, "chan-7", member("opener", "opener"), "opener", "opener")
		require.NoError(t, err)
		assert.Equal(t, []string{"chan-7"}, f.channels.deleted)
	})
}
