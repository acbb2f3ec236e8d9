package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// InvitationResource is the audit resource name for invitation codes.
const InvitationResource = "invitations"

type CreateInvitationMessage struct {
	Actor *Actor        `json:"-"`
	TTL   time.Duration `json:"ttl,omitempty"`
}

func (e CreateInvitationMessage) Type() string { return "invitation.create" }

// CreateInvitationHandler gates invitation issuance behind the invite
// policy and audits every created code.
type CreateInvitationHandler struct {
	codes  *CodeLifecycle
	policy PolicyCheck
	trail  *Trail
	logger Logger
}

// CreateInvitationOption customizes the handler.
type CreateInvitationOption func(*CreateInvitationHandler)

// WithInvitationTrail records a CREATE audit entry per issued code.
func WithInvitationTrail(trail *Trail) CreateInvitationOption {
	return func(h *CreateInvitationHandler) {
		h.trail = trail
	}
}

// WithInvitationPolicy replaces the default invite policy chain.
func WithInvitationPolicy(policy PolicyCheck) CreateInvitationOption {
	return func(h *CreateInvitationHandler) {
		if policy != nil {
			h.policy = policy
		}
	}
}

// WithInvitationLogger overrides the logger.
func WithInvitationLogger(logger Logger) CreateInvitationOption {
	return func(h *CreateInvitationHandler) {
		h.logger = normalizeLogger(logger)
	}
}

// NewCreateInvitationHandler creates the invitation handler.
func NewCreateInvitationHandler(codes *CodeLifecycle, opts ...CreateInvitationOption) *CreateInvitationHandler {
	h := &CreateInvitationHandler{
		codes:  codes,
		policy: InvitePolicy(),
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *CreateInvitationHandler) Execute(ctx context.Context, event CreateInvitationMessage) (*OneTimeCode, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during invitation creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateInvitationHandler) execute(ctx context.Context, event CreateInvitationMessage) (*OneTimeCode, error) {
	if err := h.policy(PolicyRequest{Actor: event.Actor}); err != nil {
		return nil, err
	}

	issue := func(ctx context.Context) (*OneTimeCode, error) {
		var createdBy *uuid.UUID
		if event.Actor != nil {
			createdBy = &event.Actor.ID
		}

		return h.codes.WithTTL(event.TTL).Issue(ctx, IssueOptions{CreatedBy: createdBy})
	}

	if h.trail == nil {
		return issue(ctx)
	}

	var code *OneTimeCode
	err := h.trail.Around(ctx, Mutation{
		Actor:    event.Actor,
		Action:   AuditActionCreate,
		Resource: InvitationResource,
		Body:     map[string]any{"kind": CodeKindInvitation},
	}, func(ctx context.Context) error {
		var err error
		code, err = issue(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("invitation %s created", code.ID)
	return code, nil
}
