package progress

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/questline-backend/internal/domain"
	domainagg "github.com/yungbote/questline-backend/internal/domain/aggregates"
	"github.com/yungbote/questline-backend/internal/platform/dbctx"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

type ProvisionUserInput struct {
	UserID      uuid.UUID
	Email       string
	DisplayName string
}

type ProvisionUserOutput struct {
	Stats   UserStats `json:"stats"`
	Created bool      `json:"created"`
}

// ProvisionUser creates the progression row for an identity issued by the
// session service. Calling it again for the same user returns the existing
// row; an email held by a different user is a conflict.
func (u Usecases) ProvisionUser(ctx context.Context, in ProvisionUserInput) (out ProvisionUserOutput, err error) {
	ctx, span := startSpan(ctx, "ProvisionUser", in.UserID)
	defer func() { endSpan(span, err) }()

	const op = "progress.ProvisionUser"
	if in.UserID == uuid.Nil {
		return out, domainagg.Sentinel(domainagg.CodeUnauthenticated, op, domainagg.ErrAuthenticationRequired)
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "email is required", nil)
	}
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	dbc := dbctx.Context{Ctx: ctx}

	existing, err := u.existingUser(dbc, op, in.UserID, email)
	if err != nil {
		return out, err
	}
	if existing == nil {
		created, cerr := u.deps.Users.Create(dbc, []*types.User{{
			ID:          in.UserID,
			Email:       email,
			DisplayName: name,
			Level:       1,
			Hearts:      u.deps.Config.MaxHearts,
		}})
		if cerr != nil {
			// a concurrent provision may have won the insert
			existing, err = u.existingUser(dbc, op, in.UserID, email)
			if err != nil {
				return out, err
			}
			if existing == nil {
				return out, domainagg.Wrap(domainagg.CodeInternal, op, cerr)
			}
		} else {
			existing = created[0]
			out.Created = true
			u.deps.Log.Info("user provisioned", "user_id", existing.ID)
		}
	}

	out.Stats, err = u.stats(ctx, existing)
	span.SetAttributes(attribute.Bool("user.created", out.Created))
	return out, err
}

// existingUser returns the row for userID, or nil when neither the id nor the
// email is taken.
func (u Usecases) existingUser(dbc dbctx.Context, op string, userID uuid.UUID, email string) (*types.User, error) {
	usr, err := u.deps.Users.GetByID(dbc, userID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if usr != nil {
		return usr, nil
	}
	owner, err := u.deps.Users.GetByEmail(dbc, email)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if owner != nil {
		return nil, domainagg.Sentinel(domainagg.CodeConflict, op, domainagg.ErrEmailTaken)
	}
	return nil, nil
}

// ListXPHistory returns the caller's XP ledger, newest first.
func (u Usecases) ListXPHistory(ctx context.Context, userID uuid.UUID, limit int) (out []*types.XPLedgerEntry, err error) {
	ctx, span := startSpan(ctx, "ListXPHistory", userID)
	defer func() { endSpan(span, err) }()

	const op = "progress.ListXPHistory"
	if userID == uuid.Nil {
		return nil, domainagg.Sentinel(domainagg.CodeUnauthenticated, op, domainagg.ErrAuthenticationRequired)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	out, err = u.deps.Ledger.ListByUser(dbctx.Context{Ctx: ctx}, userID, limit)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return out, nil
}

// ListCourseProgress returns every course the caller has progress on.
func (u Usecases) ListCourseProgress(ctx context.Context, userID uuid.UUID) (out []*types.CourseProgress, err error) {
	ctx, span := startSpan(ctx, "ListCourseProgress", userID)
	defer func() { endSpan(span, err) }()

	const op = "progress.ListCourseProgress"
	if userID == uuid.Nil {
		return nil, domainagg.Sentinel(domainagg.CodeUnauthenticated, op, domainagg.ErrAuthenticationRequired)
	}
	out, err = u.deps.Progress.ListByUser(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return out, nil
}
