package model

import "time"

// Grade levels.  Positive grades gain privileges; negative grades mark
// warned or blocked members.  Staff checks use >= comparisons so new
// levels can slot in between.
const (
    GradeBlocked = -20
    GradeWarning = -10
    GradeNormal  = 0
    GradeVIP     = 10
    GradeManager = 15
    GradeAdmin   = 20
)

// User represents a café member as stored in the `users` table.  Members
// register through the chat bot or the front desk; ChatID links the bot
// identity and SMSVerified gates booking.  Staff accounts additionally
// carry a bcrypt password hash for the web console login.
//
// Fields:
//  ID           – primary key identifier.
//  ChatID       – chat-bot identity (0 when the member never used the bot).
//  Username     – display name.
//  Department   – member's department affiliation, used for pool refunds.
//  Grade        – privilege level, see the Grade constants.
//  SMSVerified  – whether the phone number passed OTP verification.
//  PasswordHash – bcrypt hash for staff web login (empty for members).
//  CreatedAt    – timestamp of registration.
type User struct {
    ID           uint64    // users.id
    ChatID       int64     // users.chat_id
    Username     string    // users.username
    Department   string    // users.department
    Grade        int       // users.grade
    SMSVerified  bool      // users.sms
    PasswordHash string    // users.password_hash
    CreatedAt    time.Time // users.created_at
}

// Staff reports whether the user may use administrative operations.
func (u *User) Staff() bool { return u.Grade >= GradeManager }

// Admin reports whether the user bypasses closure, business-hours and
// booking-horizon checks.
func (u *User) Admin() bool { return u.Grade >= GradeAdmin }
