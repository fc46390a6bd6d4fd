package mocks

import (
	"github.com/go-telegram/bot/models"
)

// UpdateBuilder helps construct test Update objects.
type UpdateBuilder struct {
	update *models.Update
}

// NewUpdateBuilder creates a new UpdateBuilder.
func NewUpdateBuilder() *UpdateBuilder {
	return &UpdateBuilder{update: &models.Update{}}
}

// WithMessage sets a private chat message on the update.
func (b *UpdateBuilder) WithMessage(chatID, userID int64, text string) *UpdateBuilder {
	b.update.Message = &models.Message{
		ID:   1,
		Chat: models.Chat{ID: chatID, Type: "private"},
		From: &models.User{
			ID:        userID,
			FirstName: "Sam",
			LastName:  "Lee",
			Username:  "samlee",
		},
		Text: text,
	}
	return b
}

// WithFrom replaces the sender of the message.
func (b *UpdateBuilder) WithFrom(userID int64, username, firstName, lastName string) *UpdateBuilder {
	if b.update.Message != nil {
		b.update.Message.From = &models.User{
			ID:        userID,
			Username:  username,
			FirstName: firstName,
			LastName:  lastName,
		}
	}
	return b
}

// WithPhoto adds a small and a large size of the same photo.
func (b *UpdateBuilder) WithPhoto(fileID string) *UpdateBuilder {
	if b.update.Message == nil {
		b.WithMessage(0, 0, "")
	}
	b.update.Message.Photo = []models.PhotoSize{
		{FileID: fileID + "_small", FileUniqueID: fileID + "_small_unique", Width: 320, Height: 240},
		{FileID: fileID, FileUniqueID: fileID + "_unique", Width: 1280, Height: 960},
	}
	return b
}

// WithDocument adds a document to the message.
func (b *UpdateBuilder) WithDocument(fileID, fileName, mimeType string) *UpdateBuilder {
	if b.update.Message == nil {
		b.WithMessage(0, 0, "")
	}
	b.update.Message.Document = &models.Document{
		FileID:       fileID,
		FileUniqueID: fileID + "_unique",
		FileName:     fileName,
		MimeType:     mimeType,
	}
	return b
}

// WithCaption sets the media caption.
func (b *UpdateBuilder) WithCaption(caption string) *UpdateBuilder {
	if b.update.Message != nil {
		b.update.Message.Caption = caption
	}
	return b
}

// Build returns the constructed Update.
func (b *UpdateBuilder) Build() *models.Update {
	return b.update
}

// CommandUpdate creates a text message update.
func CommandUpdate(chatID, userID int64, text string) *models.Update {
	return NewUpdateBuilder().WithMessage(chatID, userID, text).Build()
}

// PhotoUpdate creates a photo message update.
func PhotoUpdate(chatID, userID int64, fileID string) *models.Update {
	return NewUpdateBuilder().WithMessage(chatID, userID, "").WithPhoto(fileID).Build()
}

// DocumentUpdate creates a document message update.
func DocumentUpdate(chatID, userID int64, fileID, fileName, mimeType string) *models.Update {
	return NewUpdateBuilder().WithMessage(chatID, userID, "").WithDocument(fileID, fileName, mimeType).Build()
}
