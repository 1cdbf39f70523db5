package model

// UserRole 来自外部签发的 JWT，本服务不保存账号
type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)
