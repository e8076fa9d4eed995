package model

import "time"

// User represents a row in the `users` table (or a document in the `users`
// collection when the Mongo backend is selected).  The password is only
// ever held as a bcrypt hash.  RefreshToken holds the SHA-256 digest of the
// single refresh token currently accepted for this user; nil means the user
// has no active session.
//
// Fields:
//  ID           – opaque identifier (UUID string), also the Mongo _id.
//  Username     – unique, lower-cased login name.
//  Email        – unique, lower-cased email address.
//  FullName     – display name.
//  PasswordHash – bcrypt hash of the password.
//  Avatar       – URI of the uploaded avatar image (required).
//  CoverImage   – URI of the uploaded cover image (may be empty).
//  RefreshToken – digest of the active refresh token (nullable).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           string    `bson:"_id"`
    Username     string    `bson:"username"`
    Email        string    `bson:"email"`
    FullName     string    `bson:"fullname"`
    PasswordHash string    `bson:"password"`
    Avatar       string    `bson:"avatar"`
    CoverImage   string    `bson:"coverImage"`
    RefreshToken *string   `bson:"refreshToken,omitempty"`
    CreatedAt    time.Time `bson:"createdAt"`
    UpdatedAt    time.Time `bson:"updatedAt"`
}

// Profile is the outward projection of a User: everything except the
// password hash and the refresh token.
type Profile struct {
    ID         string    `json:"_id"`
    Username   string    `json:"username"`
    Email      string    `json:"email"`
    FullName   string    `json:"fullname"`
    Avatar     string    `json:"avatar"`
    CoverImage string    `json:"coverImage"`
    CreatedAt  time.Time `json:"createdAt"`
    UpdatedAt  time.Time `json:"updatedAt"`
}

// Profile returns the projection of u that is safe to hand to clients.
func (u User) Profile() Profile {
    return Profile{
        ID:         u.ID,
        Username:   u.Username,
        Email:      u.Email,
        FullName:   u.FullName,
        Avatar:     u.Avatar,
        CoverImage: u.CoverImage,
        CreatedAt:  u.CreatedAt,
        UpdatedAt:  u.UpdatedAt,
    }
}

// HasRefreshToken reports whether the user currently holds a session.
func (u User) HasRefreshToken() bool { return u.RefreshToken != nil && *u.RefreshToken != "" }
