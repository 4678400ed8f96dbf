package entity

// User is a caller of the admin API, identified by its bearer token.
type User struct {
	Username string `json:"username" bson:"username"`
	Token    string `json:"-" bson:"token"`
}
