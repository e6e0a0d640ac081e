package domain

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID           string `db:"id" json:"id"`
	Email        string `db:"email" json:"email"`
	Name         string `db:"name" json:"name"`
	Hash         string `db:"password_hash" json:"-"`
	Role         string `db:"role" json:"role"`
	Phone        string `db:"phone" json:"phone,omitempty"`
	Address      string `db:"address" json:"address,omitempty"`
	ReferralCode string `db:"referral_code" json:"referral_code,omitempty"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }
