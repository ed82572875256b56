// Package account implements the core operations of the service: credential
// and role resolution, activation code redemption, and the admin surface
// over users, codes and verification logs. It is independent of the HTTP
// layer and talks to storage only through the repository interfaces.
package account

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/A414347330/vip-cinema/internal/model"
	"github.com/A414347330/vip-cinema/internal/repository"
	"github.com/A414347330/vip-cinema/internal/utils"
	"github.com/A414347330/vip-cinema/internal/vip"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxBatchSize    = 500
)

// ResolvedUser is what login returns: effective role and effective VIP
// activity, never the password hash.
type ResolvedUser struct {
	ID            uint64     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	IsActive      bool       `json:"is_active"`
	VIPExpireTime *time.Time `json:"vip_expire_time"`
}

// Receipt describes a successful redemption.
type Receipt struct {
	UserID    uint64    `json:"user_id"`
	Username  string    `json:"username"`
	Code      string    `json:"code"`
	DaysAdded int       `json:"days_added"`
	NewExpiry time.Time `json:"new_expiry"`
}

// UserPage is one page of an admin user listing.
type UserPage struct {
	Items    []model.UserSummary `json:"items"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// CodePage is one page of an admin code listing.
type CodePage struct {
	Items    []model.CodeSummary `json:"items"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// EmailCodePage is one page of the verification-code log.
type EmailCodePage struct {
	Items    []model.EmailCode `json:"items"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// UserUpdate carries the optional fields of an admin user update. Nil
// means "leave unchanged".
type UserUpdate struct {
	Role      *string
	AddDays   *int
	VIPActive *bool
}

// Service wires the stores together with the two configuration constants
// the core depends on: the privileged account identifier and the default
// code duration.
type Service struct {
	users      repository.UserStore
	codes      repository.CodeStore
	emailCodes repository.EmailCodeStore
	sessions   repository.SessionStore // optional

	privileged  string
	defaultDays int

	now func() time.Time // overridable in tests
}

func NewService(users repository.UserStore, codes repository.CodeStore,
	emailCodes repository.EmailCodeStore, sessions repository.SessionStore,
	privileged string, defaultDays int) *Service {
	if defaultDays <= 0 {
		defaultDays = 30
	}
	return &Service{
		users:       users,
		codes:       codes,
		emailCodes:  emailCodes,
		sessions:    sessions,
		privileged:  privileged,
		defaultDays: defaultDays,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Resolve looks up the single user matching the account identifier
// (username or email) and the supplied password hash, and computes the
// effective role and VIP activity. Strictly read-only: an expired row is
// reported inactive without being rewritten, and the privileged-account
// role override is never persisted.
func (s *Service) Resolve(ctx context.Context, account, passwordHash string) (ResolvedUser, error) {
	account = strings.TrimSpace(account)
	if account == "" || passwordHash == "" {
		return ResolvedUser{}, ErrValidation
	}
	u, err := s.users.GetByCredentials(ctx, account, passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Unknown account and wrong password collapse into one error.
			return ResolvedUser{}, ErrInvalidCredentials
		}
		return ResolvedUser{}, storageErr("resolve user", err)
	}
	return s.resolved(u), nil
}

func (s *Service) resolved(u model.User) ResolvedUser {
	return ResolvedUser{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Role:          vip.RoleFor(u.Username, u.Email, u.Role, s.privileged),
		IsActive:      vip.Active(u.IsActive, u.VIPExpireTime, s.now()),
		VIPExpireTime: u.VIPExpireTime,
	}
}

// ResolveByID recomputes the effective view of a user by primary key. Used
// by token refresh, where the caller is already authenticated.
func (s *Service) ResolveByID(ctx context.Context, id uint64) (ResolvedUser, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ResolvedUser{}, ErrNotFound
		}
		return ResolvedUser{}, storageErr("resolve user by id", err)
	}
	return s.resolved(u), nil
}

// Redeem validates and consumes an activation code for the named user and
// extends their VIP expiry by the code's duration. The user is looked up
// before the code is touched, so redeeming against an unknown username
// leaves the code unused. Consumption is atomic in the store: of several
// concurrent redemptions of one code, at most one gets past Consume.
func (s *Service) Redeem(ctx context.Context, username, code string) (Receipt, error) {
	username = strings.TrimSpace(username)
	code = strings.TrimSpace(code)
	if username == "" || code == "" {
		return Receipt{}, ErrValidation
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Receipt{}, ErrNotFound
		}
		return Receipt{}, storageErr("load user", err)
	}

	days, err := s.codes.Consume(ctx, code, u.Username)
	if err != nil {
		if errors.Is(err, repository.ErrCodeUnavailable) {
			return Receipt{}, ErrCodeInvalidOrUsed
		}
		return Receipt{}, storageErr("consume code", err)
	}
	if days <= 0 {
		// Legacy rows carry no duration of their own.
		days = s.defaultDays
	}

	// The store computes the new expiry from the stored value, not from the
	// row read above, so concurrent redemptions of different codes for one
	// user all stack.
	newExpiry, err := s.users.ExtendVIP(ctx, u.ID, days)
	if err != nil {
		return Receipt{}, storageErr("extend vip", err)
	}

	return Receipt{UserID: u.ID, Username: u.Username, Code: code, DaysAdded: days, NewExpiry: newExpiry}, nil
}

// IsAdmin reports whether the identifier names the configured privileged
// account or a user whose effective role is admin. The identifier may be a
// username or, failing that, a numeric user id.
func (s *Service) IsAdmin(ctx context.Context, identifier string) bool {
	return s.requireAdmin(ctx, identifier) == nil
}

// requireAdmin is the gate every admin operation passes first. The
// privileged identifier is admin by configuration alone; anyone else must
// have an effective role of admin in storage. Lookup tries username first,
// then a numeric user id.
func (s *Service) requireAdmin(ctx context.Context, identifier string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return ErrForbidden
	}
	if s.privileged != "" && identifier == s.privileged {
		return nil
	}
	u, err := s.users.GetByUsername(ctx, identifier)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return storageErr("load admin", err)
		}
		id, ok := parseID(identifier)
		if !ok {
			return ErrForbidden
		}
		if u, err = s.users.GetByID(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrForbidden
			}
			return storageErr("load admin", err)
		}
	}
	if vip.RoleFor(u.Username, u.Email, u.Role, s.privileged) != vip.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// ListUsers returns a page of user summaries with effective role and
// activity, optionally filtered by a username/email search term.
func (s *Service) ListUsers(ctx context.Context, adminIdentifier, search string, page, pageSize int) (UserPage, error) {
	if err := s.requireAdmin(ctx, adminIdentifier); err != nil {
		return UserPage{}, err
	}
	page, pageSize = clampPage(page, pageSize)
	users, total, err := s.users.Search(ctx, strings.TrimSpace(search), page, pageSize)
	if err != nil {
		return UserPage{}, storageErr("list users", err)
	}
	now := s.now()
	items := make([]model.UserSummary, 0, len(users))
	for _, u := range users {
		items = append(items, model.UserSummary{
			ID:            u.ID,
			Username:      u.Username,
			Email:         u.Email,
			Role:          vip.RoleFor(u.Username, u.Email, u.Role, s.privileged),
			IsActive:      vip.Active(u.IsActive, u.VIPExpireTime, now),
			VIPExpireTime: u.VIPExpireTime,
			CreatedAt:     u.CreatedAt,
		})
	}
	return UserPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// UpdateUser applies an admin edit to a user: role change, VIP-day grant,
// explicit stored-activity flip, in any combination. AddDays extends from
// the later of now and the current expiry, exactly like redemption.
func (s *Service) UpdateUser(ctx context.Context, adminIdentifier string, targetID uint64, upd UserUpdate) error {
	if err := s.requireAdmin(ctx, adminIdentifier); err != nil {
		return err
	}
	u, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return storageErr("load user", err)
	}

	if upd.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*upd.Role))
		if role != vip.RoleUser && role != vip.RoleAdmin {
			return ErrValidation
		}
		if err := s.users.UpdateRole(ctx, u.ID, role); err != nil {
			return storageErr("update role", err)
		}
	}

	active := u.IsActive
	expiry := u.VIPExpireTime
	touched := false
	if upd.AddDays != nil && *upd.AddDays != 0 {
		if *upd.AddDays < 0 {
			return ErrValidation
		}
		e := vip.Extend(expiry, s.now(), *upd.AddDays)
		expiry = &e
		active = true
		touched = true
	}
	if upd.VIPActive != nil {
		active = *upd.VIPActive
		touched = true
	}
	if touched {
		if err := s.users.SetVIP(ctx, u.ID, active, expiry); err != nil {
			return storageErr("update vip", err)
		}
	}
	return nil
}

// DeleteUser removes a user and purges their sessions.
func (s *Service) DeleteUser(ctx context.Context, adminIdentifier string, targetID uint64) error {
	if err := s.requireAdmin(ctx, adminIdentifier); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return storageErr("delete user", err)
	}
	if s.sessions != nil {
		if err := s.sessions.PurgeForUser(ctx, targetID); err != nil {
			return storageErr("purge sessions", err)
		}
	}
	return nil
}

// GenerateCodes creates a batch of fresh single-use codes and returns the
// tokens. durationDays <= 0 falls back to the configured default.
func (s *Service) GenerateCodes(ctx context.Context, adminIdentifier string, count, durationDays int) ([]string, error) {
	if err := s.requireAdmin(ctx, adminIdentifier); err != nil {
		return nil, err
	}
	if count < 1 || count > maxBatchSize {
		return nil, ErrValidation
	}
	if durationDays <= 0 {
		durationDays = s.defaultDays
	}

	codes := make([]model.ActivationCode, 0, count)
	tokens := make([]string, 0, count)
	for i := 0; i < count; i++ {
		token, err := utils.NewActivationCode(durationDays)
		if err != nil {
			return nil, storageErr("generate code", err)
		}
		codes = append(codes, model.ActivationCode{Code: token, DurationDays: durationDays})
		tokens = append(tokens, token)
	}
	if err := s.codes.CreateBatch(ctx, codes); err != nil {
		return nil, storageErr("store codes", err)
	}
	return tokens, nil
}

// ListCodes returns a page of activation codes. filter is "used", "unused"
// or "all"; search matches code token and redeeming username.
func (s *Service) ListCodes(ctx context.Context, adminIdentifier, filter, search string, page, pageSize int) (CodePage, error) {
	if err := s.requireAdmin(ctx, adminIdentifier); err != nil {
		return CodePage{}, err
	}
	page, pageSize = clampPage(page, pageSize)
	items, total, err := s.codes.List(ctx, filter, strings.TrimSpace(search), page, pageSize)
	if err != nil {
		return CodePage{}, storageErr("list codes", err)
	}
	return CodePage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// DeleteCode removes an activation code row.
func (s *Service) DeleteCode(ctx context.Context, adminIdentifier string, codeID uint64) error {
	if err := s.requireAdmin(ctx, adminIdentifier); err != nil {
		return err
	}
	if err := s.codes.Delete(ctx, codeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return storageErr("delete code", err)
	}
	return nil
}

// ListEmailCodes pages through the email verification log.
func (s *Service) ListEmailCodes(ctx context.Context, adminIdentifier, search string, page, pageSize int) (EmailCodePage, error) {
	if err := s.requireAdmin(ctx, adminIdentifier); err != nil {
		return EmailCodePage{}, err
	}
	page, pageSize = clampPage(page, pageSize)
	items, total, err := s.emailCodes.List(ctx, strings.TrimSpace(search), page, pageSize)
	if err != nil {
		return EmailCodePage{}, storageErr("list email codes", err)
	}
	return EmailCodePage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// parseID is a small helper for identifiers that may be numeric user ids.
func parseID(s string) (uint64, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	return n, err == nil
}
