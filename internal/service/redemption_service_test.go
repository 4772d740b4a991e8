package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/shopbot/internal/domain"
	"github.com/spec-kit/shopbot/internal/repository"
	"github.com/spec-kit/shopbot/internal/storefront"
	apperrors "github.com/spec-kit/shopbot/pkg/util/errorutil"
)

type fakeLedger struct {
	byInvoice map[string]*domain.RedemptionRecord
	byRole    map[string]*domain.RedemptionRecord
	inserted  []*domain.RedemptionRecord
	insertErr error
	marked    []int64
	markErr   error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		byInvoice: map[string]*domain.RedemptionRecord{},
		byRole:    map[string]*domain.RedemptionRecord{},
	}
}

func (f *fakeLedger) Insert(_ context.Context, rec *domain.RedemptionRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	rec.ID = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, rec)
	if rec.InvoiceID != nil {
		f.byInvoice[*rec.InvoiceID] = rec
	}
	return nil
}

func (f *fakeLedger) GetByInvoiceID(_ context.Context, invoiceID string) (*domain.RedemptionRecord, error) {
	if rec, ok := f.byInvoice[invoiceID]; ok {
		return rec, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeLedger) GetByRoleID(_ context.Context, roleID string) (*domain.RedemptionRecord, error) {
	if rec, ok := f.byRole[roleID]; ok {
		return rec, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeLedger) MarkRedeemed(_ context.Context, id int64, _, _ string, _ time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeLedger) List(_ context.Context, _, _ int) ([]domain.RedemptionRecord, error) {
	return nil, nil
}

type fakeStore struct {
	invoice    *storefront.Invoice
	configured bool
	calls      int
}

func (f *fakeStore) Configured() bool { return f.configured }

func (f *fakeStore) FetchInvoice(_ context.Context, _ string) *storefront.Invoice {
	f.calls++
	return f.invoice
}

type fakeGranter struct {
	member    *discordgo.Member
	memberErr error
	grantErr  error
	grants    []string
}

func (f *fakeGranter) Member(_ context.Context, _ string) (*discordgo.Member, error) {
	if f.memberErr != nil {
		return nil, f.memberErr
	}
	return f.member, nil
}

func (f *fakeGranter) EnsureRole(_ context.Context, userID, roleID string) error {
	if f.grantErr != nil {
		return f.grantErr
	}
	f.grants = append(f.grants, userID+":"+roleID)
	return nil
}

type fakeDeliverer struct {
	err       error
	delivered []string
}

func (f *fakeDeliverer) DMFile(_ context.Context, userID, _, filename string, file io.Reader) error {
	if f.err != nil {
		return f.err
	}
	_, _ = io.ReadAll(file)
	f.delivered = append(f.delivered, userID+":"+filename)
	return nil
}

type fakeGuard struct {
	denied   bool
	acquired []string
	released []string
}

func (f *fakeGuard) AcquireGuard(_ context.Context, key string, _ time.Duration) bool {
	if f.denied {
		return false
	}
	f.acquired = append(f.acquired, key)
	return true
}

func (f *fakeGuard) ReleaseGuard(_ context.Context, key string) {
	f.released = append(f.released, key)
}

func member(userID, username string, roles ...string) *discordgo.Member {
	return &discordgo.Member{
		User:  &discordgo.User{ID: userID, Username: username},
		Roles: roles,
	}
}

func paidInvoice() *storefront.Invoice {
	return &storefront.Invoice{
		Status: "paid",
		Items: []storefront.InvoiceItem{
			{
				Product: storefront.NamedEntity{Name: "Premium"},
				Variant: storefront.NamedEntity{Name: "Lifetime"},
			},
		},
	}
}

type redemptionFixture struct {
	service   *RedemptionService
	ledger    *fakeLedger
	store     *fakeStore
	granter   *fakeGranter
	deliverer *fakeDeliverer
	guard     *fakeGuard
}

func newRedemptionFixture() *redemptionFixture {
	f := &redemptionFixture{
		ledger:    newFakeLedger(),
		store:     &fakeStore{configured: true, invoice: paidInvoice()},
		granter:   &fakeGranter{member: member("buyer", "buyer")},
		deliverer: &fakeDeliverer{},
		guard:     &fakeGuard{},
	}
	f.service = NewRedemptionService(RedemptionDependencies{
		Ledger:       f.ledger,
		Store:        f.store,
		Granter:      f.granter,
		Deliverer:    f.deliverer,
		Guard:        f.guard,
		AccessRoleID: "role-access",
		Logger:       zap.NewNop(),
	})
	return f
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return apperrors.ToDomainError(err).Code
}

func TestRedeemInvoice(t *testing.T) {
	ctx := context.Background()
	input := RedeemInvoiceInput{InvoiceID: "inv-1", TargetUserID: "buyer", ActorID: "buyer"}

	t.Run("rejects blank order id", func(t *testing.T) {
		f := newRedemptionFixture()
		_, err := f.service.RedeemInvoice(ctx, RedeemInvoiceInput{InvoiceID: "   "})
		assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
	})

	t.Run("rejects when storefront unconfigured", func(t *testing.T) {
		f := newRedemptionFixture()
		f.store.configured = false
		_, err := f.service.RedeemInvoice(ctx, input)
		assert.Equal(t, "NOT_CONFIGURED", errCode(t, err))
		assert.Zero(t, f.store.calls)
	})

	t.Run("rejects while another redeem is in flight", func(t *testing.T) {
		f := newRedemptionFixture()
		f.guard.denied = true
		_, err := f.service.RedeemInvoice(ctx, input)
		assert.Equal(t, "ALREADY_REDEEMED", errCode(t, err))
		assert.Zero(t, f.store.calls)
	})

	t.Run("rejects already redeemed invoice without a storefront call", func(t *testing.T) {
		f := newRedemptionFixture()
		invoiceID := "inv-1"
		f.ledger.byInvoice[invoiceID] = &domain.RedemptionRecord{ID: 7, InvoiceID: &invoiceID}
		_, err := f.service.RedeemInvoice(ctx, input)
		assert.Equal(t, "ALREADY_REDEEMED", errCode(t, err))
		assert.Zero(t, f.store.calls)
		assert.Empty(t, f.granter.grants)
	})

	t.Run("rejects unknown invoice", func(t *testing.T) {
		f := newRedemptionFixture()
		f.store.invoice = nil
		_, err := f.service.RedeemInvoice(ctx, input)
		assert.Equal(t, "NOT_FOUND", errCode(t, err))
	})

	t.Run("rejects unpaid invoice before any grant", func(t *testing.T) {
		f := newRedemptionFixture()
		f.store.invoice = &storefront.Invoice{Status: "pending"}
		_, err := f.service.RedeemInvoice(ctx, input)
		assert.Equal(t, "NOT_PAID", errCode(t, err))
		assert.Empty(t, f.granter.grants)
		assert.Empty(t, f.ledger.inserted)
	})

	t.Run("rejects refunded invoice", func(t *testing.T) {
		f := newRedemptionFixture()
		inv := paidInvoice()
		inv.Refunded = true
		f.store.invoice = inv
		_, err := f.service.RedeemInvoice(ctx, input)
		assert.Equal(t, "NOT_PAID", errCode(t, err))
	})

	t.Run("rejects target outside the guild", func(t *testing.T) {
		f := newRedemptionFixture()
		f.granter.memberErr = errors.New("unknown member")
		_, err := f.service.RedeemInvoice(ctx, input)
		assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
		assert.Empty(t, f.ledger.inserted)
	})

	t.Run("grant failure leaves no ledger row", func(t *testing.T) {
		f := newRedemptionFixture()
		f.granter.grantErr = apperrors.NewPermissionDenied("cannot assign roles")
		_, err := f.service.RedeemInvoice(ctx, input)
		assert.Equal(t, "PERMISSION_DENIED", errCode(t, err))
		assert.Empty(t, f.ledger.inserted)
	})

	t.Run("success grants the role and writes one row", func(t *testing.T) {
		f := newRedemptionFixture()
		record, err := f.service.RedeemInvoice(ctx, input)
		require.NoError(t, err)

		assert.Equal(t, []string{"buyer:role-access"}, f.granter.grants)
		require.Len(t, f.ledger.inserted, 1)
		assert.True(t, record.Redeemed)
		require.NotNil(t, record.InvoiceID)
		assert.Equal(t, "inv-1", *record.InvoiceID)
		require.NotNil(t, record.RoleID)
		assert.Equal(t, "role-access", *record.RoleID)
		require.NotNil(t, record.RedeemedBy)
		assert.Equal(t, "buyer", *record.RedeemedBy)
		assert.Equal(t, "Premium", record.ProductName)
		assert.Equal(t, "Lifetime", record.VariantName)
		assert.Equal(t, f.guard.acquired, f.guard.released)
	})

	t.Run("staff redeem records the staff actor", func(t *testing.T) {
		f := newRedemptionFixture()
		f.granter.member = member("customer", "customer")
		record, err := f.service.RedeemInvoice(ctx, RedeemInvoiceInput{
			InvoiceID: "inv-2", TargetUserID: "customer", ActorID: "staff-1", ByStaff: true,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"customer:role-access"}, f.granter.grants)
		assert.Equal(t, "staff-1", *record.RedeemedBy)
	})

	t.Run("insert collision maps to already redeemed", func(t *testing.T) {
		f := newRedemptionFixture()
		f.ledger.insertErr = repository.ErrDuplicateInvoice
		_, err := f.service.RedeemInvoice(ctx, input)
		assert.Equal(t, "ALREADY_REDEEMED", errCode(t, err))
	})
}

func TestRedeemProduct(t *testing.T) {
	ctx := context.Background()

	productFile := func(t *testing.T) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "premium.txt")
		require.NoError(t, os.WriteFile(path, []byte("license-key"), 0o600))
		return path
	}

	t.Run("requires the product role", func(t *testing.T) {
		f := newRedemptionFixture()
		f.granter.member = member("buyer", "buyer")
		err := f.service.RedeemProduct(ctx, RedeemProductInput{RoleID: "role-x", UserID: "buyer"})
		assert.Equal(t, "FORBIDDEN", errCode(t, err))
	})

	t.Run("rejects a code already claimed by someone else", func(t *testing.T) {
		f := newRedemptionFixture()
		f.granter.member = member("buyer", "buyer", "role-x")
		other := "someone-else"
		f.ledger.byRole["role-x"] = &domain.RedemptionRecord{ID: 3, Redeemed: true, RedeemedBy: &other}
		err := f.service.RedeemProduct(ctx, RedeemProductInput{RoleID: "role-x", UserID: "buyer"})
		assert.Equal(t, "ALREADY_REDEEMED", errCode(t, err))
		assert.Empty(t, f.deliverer.delivered)
	})

	t.Run("rejects a repeat claim by the same user", func(t *testing.T) {
		f := newRedemptionFixture()
		f.granter.member = member("buyer", "buyer", "role-x")
		buyer := "buyer"
		f.ledger.byRole["role-x"] = &domain.RedemptionRecord{ID: 3, Redeemed: true, RedeemedBy: &buyer}
		err := f.service.RedeemProduct(ctx, RedeemProductInput{RoleID: "role-x", UserID: "buyer"})
		assert.Equal(t, "ALREADY_REDEEMED", errCode(t, err))
	})

	t.Run("missing product file fails before delivery", func(t *testing.T) {
		f := newRedemptionFixture()
		f.granter.member = member("buyer", "buyer", "role-x")
		f.ledger.byRole["role-x"] = &domain.RedemptionRecord{ID: 3}
		err := f.service.RedeemProduct(ctx, RedeemProductInput{
			RoleID: "role-x", ProductPath: "/nonexistent/file.txt", UserID: "buyer",
		})
		assert.Equal(t, "NOT_FOUND", errCode(t, err))
		assert.Empty(t, f.ledger.marked)
	})

	t.Run("blocked DMs leave the code unclaimed", func(t *testing.T) {
		f := newRedemptionFixture()
		f.granter.member = member("buyer", "buyer", "role-x")
		f.ledger.byRole["role-x"] = &domain.RedemptionRecord{ID: 3}
		f.deliverer.err = apperrors.NewDeliveryBlocked("DMs are closed")
		err := f.service.RedeemProduct(ctx, RedeemProductInput{
			RoleID: "role-x", ProductName: "Premium", ProductPath: productFile(t), UserID: "buyer",
		})
		assert.Equal(t, "DELIVERY_BLOCKED", errCode(t, err))
		assert.Empty(t, f.ledger.marked)
	})

	t.Run("success delivers the file and marks the claim", func(t *testing.T) {
		f := newRedemptionFixture()
		f.granter.member = member("buyer", "buyer", "role-x")
		f.ledger.byRole["role-x"] = &domain.RedemptionRecord{ID: 3}
		err := f.service.RedeemProduct(ctx, RedeemProductInput{
			RoleID: "role-x", ProductName: "Premium", ProductPath: productFile(t), UserID: "buyer",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"buyer:premium.txt"}, f.deliverer.delivered)
		assert.Equal(t, []int64{3}, f.ledger.marked)
	})

	t.Run("a failed claim update does not fail the delivery", func(t *testing.T) {
		f := newRedemptionFixture()
		f.granter.member = member("buyer", "buyer", "role-x")
		f.ledger.byRole["role-x"] = &domain.RedemptionRecord{ID: 3}
		f.ledger.markErr = errors.New("db down")
		err := f.service.RedeemProduct(ctx, RedeemProductInput{
			RoleID: "role-x", ProductName: "Premium", ProductPath: productFile(t), UserID: "buyer",
		})
		require.NoError(t, err)
		assert.Len(t, f.deliverer.delivered, 1)
	})
}
