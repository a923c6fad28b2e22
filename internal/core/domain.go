package core

import (
	"errors"
	"strings"
	"time"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

const (
	RoleOwner Role = "owner"
	RoleUser  Role = "user"
)

type (
	// Kind distinguishes money coming in from money going out. The
	// amount itself is always positive; the kind carries the sign.
	Kind string

	// Role controls access to user management.
	Role string

	// Date is a calendar date normalized to UTC midnight. All
	// time-bucketing and range filtering operates on Date, never on
	// creation timestamps.
	Date struct {
		time.Time
	}

	// Money is an amount in whole Rupiah. The currency has no
	// sub-unit precision in practice, so there is no cents field.
	Money struct {
		Units int64
	}

	Transaction struct {
		ID          string
		UserID      string
		Kind        Kind
		Amount      Money
		Description string
		Date        Date      // attribution date
		CreatedAt   time.Time // informational, never used for bucketing
	}

	User struct {
		ID        string
		Username  string
		Role      Role
		CreatedAt time.Time
	}

	// Credential is a user record as stored in the user directory,
	// password included. Never returned to clients.
	Credential struct {
		User
		Password string
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyUserID      = errors.New("empty user id")
	ErrEmptyUsername    = errors.New("empty username")
	ErrInvalidRole      = errors.New("invalid role")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses an ISO calendar date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

// ISO renders the date as 2006-01-02.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// Next returns the following calendar day.
func (d Date) Next() Date {
	return Date{Time: d.AddDate(0, 0, 1)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (k Kind) Validate() error {
	switch k {
	case KindIncome, KindExpense:
		return nil
	}
	return ErrInvalidKind
}

func (r Role) Validate() error {
	switch r {
	case RoleOwner, RoleUser:
		return nil
	}
	return ErrInvalidRole
}

func (m Money) Validate() error {
	if m.Units <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUserID
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return t.Date.Validate()
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyUsername
	}
	if len(u.Username) > 64 {
		return errors.New("username too long (max 64 characters)")
	}
	return u.Role.Validate()
}
