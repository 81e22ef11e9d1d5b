package api

import (
	"context"

	"github.com/dmitrijs2005/anonify/internal/client/models"
)

type Client interface {
	Close() error
	Ping(ctx context.Context) error

	Login(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error)
	Register(ctx context.Context, reg models.Registration) (*models.AuthResponse, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*models.Profile, error)
	UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.AuthResponse, error)

	ListChats(ctx context.Context) ([]models.Chat, error)
	GetChat(ctx context.Context, chatID int64) (*models.Chat, error)
	CreateChat(ctx context.Context, chat models.NewChat) (*models.Chat, error)
	RenameChat(ctx context.Context, chatID int64, title string) (*models.Chat, error)
	DeleteChat(ctx context.Context, chatID int64) error

	ListMessages(ctx context.Context, chatID int64) ([]models.Message, error)
	SendMessage(ctx context.Context, chatID int64, msg models.NewMessage) (*models.Message, error)

	Redact(ctx context.Context, file models.Upload, opts models.RedactOptions) (*models.DetectionResult, error)
	Entities(ctx context.Context) ([]string, error)
	TaskLog(ctx context.Context, taskID string) (*models.TaskLog, error)
}
