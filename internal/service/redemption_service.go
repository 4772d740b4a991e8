package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/shopbot/internal/domain"
	"github.com/spec-kit/shopbot/internal/events"
	"github.com/spec-kit/shopbot/internal/observability"
	"github.com/spec-kit/shopbot/internal/repository"
	"github.com/spec-kit/shopbot/internal/storefront"
	apperrors "github.com/spec-kit/shopbot/pkg/util/errorutil"
)

// AccessGranter applies membership roles and resolves guild members.
type AccessGranter interface {
	Member(ctx context.Context, userID string) (*discordgo.Member, error)
	EnsureRole(ctx context.Context, userID, roleID string) error
}

// InvoiceFetcher looks up storefront invoices.
type InvoiceFetcher interface {
	Configured() bool
	FetchInvoice(ctx context.Context, invoiceID string) *storefront.Invoice
}

// FileDeliverer sends product files over direct messages.
type FileDeliverer interface {
	DMFile(ctx context.Context, userID, content, filename string, file io.Reader) error
}

// RedeemGuard holds a short exclusive marker around a redemption in flight.
// The database uniqueness constraint is the real dedup barrier; the guard
// only suppresses double submits during the storefront round trip.
type RedeemGuard interface {
	AcquireGuard(ctx context.Context, key string, ttl time.Duration) bool
	ReleaseGuard(ctx context.Context, key string)
}

// RedemptionService coordinates invoice and code redemption workflows.
type RedemptionService struct {
	ledger       repository.RedemptionRepository
	store        InvoiceFetcher
	granter      AccessGranter
	deliverer    FileDeliverer
	guard        RedeemGuard
	dispatcher   events.Dispatcher
	accessRoleID string
	logger       *zap.Logger
}

// RedemptionDependencies bundles collaborators for the redemption service.
type RedemptionDependencies struct {
	Ledger       repository.RedemptionRepository
	Store        InvoiceFetcher
	Granter      AccessGranter
	Deliverer    FileDeliverer
	Guard        RedeemGuard
	Dispatcher   events.Dispatcher
	AccessRoleID string
	Logger       *zap.Logger
}

// NewRedemptionService constructs the service.
func NewRedemptionService(deps RedemptionDependencies) *RedemptionService {
	return &RedemptionService{
		ledger:       deps.Ledger,
		store:        deps.Store,
		granter:      deps.Granter,
		deliverer:    deps.Deliverer,
		guard:        deps.Guard,
		dispatcher:   deps.Dispatcher,
		accessRoleID: deps.AccessRoleID,
		logger:       deps.Logger,
	}
}

// RedeemInvoiceInput describes an invoice redemption request. ActorID is the
// caller (the buyer from the modal, or the staff member for /redeem);
// TargetUserID receives the access role.
type RedeemInvoiceInput struct {
	InvoiceID    string
	TargetUserID string
	ActorID      string
	ByStaff      bool
}

const guardTTL = 30 * time.Second

// RedeemInvoice runs the full invoice workflow: ledger check, storefront
// verification, role grant, ledger write, audit event. The grant happens
// before the write; a grant failure leaves no ledger row.
func (s *RedemptionService) RedeemInvoice(ctx context.Context, input RedeemInvoiceInput) (*domain.RedemptionRecord, error) {
	invoiceID := strings.TrimSpace(input.InvoiceID)
	if invoiceID == "" {
		return nil, apperrors.NewValidationError("order id required", nil)
	}
	if !s.store.Configured() {
		return nil, apperrors.NewNotConfigured("the storefront")
	}

	guardKey := "redeem:invoice:" + invoiceID
	if !s.guard.AcquireGuard(ctx, guardKey, guardTTL) {
		observability.Redemptions.WithLabelValues("invoice", "in_flight").Inc()
		return nil, apperrors.NewAlreadyRedeemed("This order is already being redeemed. Try again in a moment.")
	}
	defer s.guard.ReleaseGuard(ctx, guardKey)

	if _, err := s.ledger.GetByInvoiceID(ctx, invoiceID); err == nil {
		observability.Redemptions.WithLabelValues("invoice", "duplicate").Inc()
		return nil, apperrors.NewAlreadyRedeemed("This order has already been redeemed.")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	invoice := s.store.FetchInvoice(ctx, invoiceID)
	if invoice == nil {
		observability.Redemptions.WithLabelValues("invoice", "not_found").Inc()
		return nil, apperrors.NewNotFound("order", map[string]any{"invoice_id": invoiceID})
	}
	if !invoice.IsPaid() {
		observability.Redemptions.WithLabelValues("invoice", "not_paid").Inc()
		return nil, apperrors.NewNotPaid("This order is not completed or paid, or it was refunded or cancelled.")
	}

	member, err := s.granter.Member(ctx, input.TargetUserID)
	if err != nil {
		return nil, apperrors.NewValidationError("That user is not in this server.", nil)
	}

	if err := s.granter.EnsureRole(ctx, input.TargetUserID, s.accessRoleID); err != nil {
		observability.Redemptions.WithLabelValues("invoice", "grant_failed").Inc()
		return nil, err
	}

	product, variant := invoice.ProductVariant()
	now := time.Now().UTC()
	username := memberName(member)
	record := &domain.RedemptionRecord{
		RoleID:          &s.accessRoleID,
		Redeemed:        true,
		RedeemedBy:      &input.ActorID,
		InvoiceID:       &invoiceID,
		ProductName:     product,
		VariantName:     variant,
		DiscordUsername: username,
		RedeemedAt:      &now,
	}
	if err := s.ledger.Insert(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateInvoice) {
			observability.Redemptions.WithLabelValues("invoice", "duplicate").Inc()
			return nil, apperrors.NewAlreadyRedeemed("This order has already been redeemed.")
		}
		return nil, apperrors.MapError(err)
	}

	observability.Redemptions.WithLabelValues("invoice", "success").Inc()
	s.publish(ctx, events.Event{
		Type:    events.EventOrderRedeemed,
		ActorID: input.ActorID,
		Payload: events.OrderRedeemedPayload{
			InvoiceID:       invoiceID,
			GrantedToID:     input.TargetUserID,
			GrantedToName:   username,
			ProductName:     product,
			VariantName:     variant,
			RedeemedByStaff: input.ByStaff,
		},
	})
	return record, nil
}

// RedeemProductInput describes a code-flow redemption from a panel button.
type RedeemProductInput struct {
	RoleID      string
	ProductName string
	ProductPath string
	UserID      string
}

// RedeemProduct handles the legacy code flow: role membership check, ledger
// state check, file existence check, DM delivery, then update-in-place. A
// code is single-claim: once any user has redeemed it, every later claim is
// rejected.
func (s *RedemptionService) RedeemProduct(ctx context.Context, input RedeemProductInput) error {
	member, err := s.granter.Member(ctx, input.UserID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !hasRole(member, input.RoleID) {
		observability.Redemptions.WithLabelValues("code", "missing_role").Inc()
		return apperrors.NewForbidden("You do not have the required role to redeem this product.")
	}

	record, err := s.ledger.GetByRoleID(ctx, input.RoleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("redemption entry", map[string]any{"role_id": input.RoleID})
		}
		return apperrors.MapError(err)
	}
	if record.Redeemed {
		observability.Redemptions.WithLabelValues("code", "duplicate").Inc()
		if record.RedeemedBy != nil && *record.RedeemedBy == input.UserID {
			return apperrors.NewAlreadyRedeemed("You already redeemed this product.")
		}
		return apperrors.NewAlreadyRedeemed("This product has already been claimed.")
	}

	file, err := os.Open(input.ProductPath)
	if err != nil {
		observability.Deliveries.WithLabelValues("missing_file").Inc()
		s.logger.Error("product file missing", zap.String("path", input.ProductPath), zap.Error(err))
		return apperrors.NewNotFound("product file", nil)
	}
	defer file.Close()

	content := "Here is your product file for " + input.ProductName + ":"
	if err := s.deliverer.DMFile(ctx, input.UserID, content, filepath.Base(input.ProductPath), file); err != nil {
		observability.Deliveries.WithLabelValues("blocked").Inc()
		return err
	}
	observability.Deliveries.WithLabelValues("success").Inc()

	username := memberName(member)
	if err := s.ledger.MarkRedeemed(ctx, record.ID, input.UserID, username, time.Now().UTC()); err != nil {
		// The file is already delivered; the inspector reconciles this drift.
		observability.SwallowedFailures.WithLabelValues("code_mark_redeemed").Inc()
		s.logger.Error("failed to mark code redemption", zap.Int64("record_id", record.ID), zap.Error(err))
	}

	observability.Redemptions.WithLabelValues("code", "success").Inc()
	s.publish(ctx, events.Event{
		Type:    events.EventProductDelivered,
		ActorID: input.UserID,
		Payload: events.ProductDeliveredPayload{
			RoleID:      input.RoleID,
			ProductName: input.ProductName,
			UserID:      input.UserID,
			Username:    username,
		},
	})
	return nil
}

func (s *RedemptionService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	_ = s.dispatcher.Publish(ctx, event)
}

func memberName(member *discordgo.Member) string {
	if member == nil || member.User == nil {
		return "unknown"
	}
	return member.User.Username
}

func hasRole(member *discordgo.Member, roleID string) bool {
	if member == nil {
		return false
	}
	for _, id := range member.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}
