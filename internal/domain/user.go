package domain

import "time"

// User - чат телеграма, хоть раз писавший боту
type User struct {
	ChatID    int64
	Username  string
	CreatedAt time.Time
}

// SavedSession - последние query/page чата, переживают рестарт бота
type SavedSession struct {
	ChatID    int64
	Query     string
	Page      int
	UpdatedAt time.Time
}
