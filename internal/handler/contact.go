package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-dealership/internal/mailer"
	"github.com/iliyamo/car-dealership/internal/model"
	"github.com/iliyamo/car-dealership/internal/queue"
	"github.com/iliyamo/car-dealership/internal/repository"
	"github.com/iliyamo/car-dealership/internal/storage"
)

// ContactStore is the contact message persistence.
type ContactStore interface {
	Create(ctx context.Context, name, email, message string, fileName *string) (uint64, error)
	List(ctx context.Context) ([]model.Contact, error)
	GetByID(ctx context.Context, id uint64) (model.Contact, error)
	MarkReplied(ctx context.Context, id uint64) error
	Delete(ctx context.Context, id uint64) error
}

// ContactHandler serves the public contact form and the admin inbox.
type ContactHandler struct {
	Contacts   ContactStore
	Files      storage.Store
	Mail       mailer.Sender
	Hub        Notifier
	Events     EventPublisher
	AdminEmail string
	MaxBytes   int64
	Log        *slog.Logger
}

// NewContactHandler fills in defaults for an optional event publisher and
// logger.
func NewContactHandler(h ContactHandler) *ContactHandler {
	if h.Events == nil {
		h.Events = nopEvents{}
	}
	h.Log = orDefault(h.Log)
	return &h
}

type contactReq struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Message string `json:"message" form:"message"`
}

// uploadedFile returns the optional "file" part of a multipart request.
func uploadedFile(c echo.Context) (*multipart.FileHeader, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}
	fh, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	return fh, err
}

// Create accepts a contact message with an optional attachment.  Once the
// message is stored the request succeeds; mail, live notice and event are
// attempted afterwards and failures are only logged.
func (h *ContactHandler) Create(c echo.Context) error {
	var req contactReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	if req.Name == "" || req.Email == "" || req.Message == "" {
		return errorJSON(c, http.StatusBadRequest, "Name, email and message are required")
	}
	if !model.ValidEmail(req.Email) {
		return errorJSON(c, http.StatusBadRequest, "Invalid email format")
	}

	fh, err := uploadedFile(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid file upload")
	}
	if fh != nil {
		if err := storage.ValidateAttachment(fh, h.MaxBytes); err != nil {
			if errors.Is(err, storage.ErrFileTooLarge) {
				return errorJSON(c, http.StatusBadRequest, "File size exceeds "+sizeLabel(h.MaxBytes)+" limit")
			}
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	var ref *string
	if fh != nil {
		saved, err := h.saveFile(ctx, fh)
		if err != nil {
			return serverError(c, h.Log, "store attachment", err)
		}
		ref = &saved
	}

	id, err := h.Contacts.Create(ctx, req.Name, req.Email, req.Message, ref)
	if err != nil {
		if ref != nil {
			_ = h.Files.Remove(ctx, *ref)
		}
		return serverError(c, h.Log, "create contact", err)
	}

	h.notifyAdmin(ctx, id, req, ref)
	h.Hub.Broadcast(fmt.Sprintf("New contact message from %s: %s", req.Name, req.Message))
	ev := queue.NewEvent(queue.ContactReceived)
	ev.ContactID, ev.Email, ev.HasFile = id, req.Email, ref != nil
	publish(c, h.Log, h.Events, ev)

	return c.JSON(http.StatusOK, echo.Map{"message": "Message sent successfully", "id": id})
}

func sizeLabel(n int64) string {
	if n >= 1<<20 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%dKB", n>>10)
}

func (h *ContactHandler) saveFile(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return h.Files.Save(ctx, storage.Ext(fh.Filename), f, fh.Size, fh.Header.Get("Content-Type"))
}

func (h *ContactHandler) notifyAdmin(ctx context.Context, id uint64, req contactReq, ref *string) {
	if h.AdminEmail == "" {
		h.Log.Warn("EMAIL_ADMIN not set, skipping contact notification", "contact_id", id)
		return
	}
	body := fmt.Sprintf("Name: %s\nEmail: %s\nMessage: %s\n", req.Name, req.Email, req.Message)
	m := mailer.Message{To: h.AdminEmail, Subject: "New Contact Message from " + req.Name}
	if ref != nil {
		body += "Attachment: " + *ref + "\n"
		name := *ref
		m.Attachments = []mailer.Attachment{{
			Name: name,
			Open: func() (io.ReadCloser, error) { return h.Files.Open(ctx, name) },
		}}
	}
	m.Text = body
	if err := h.Mail.Send(ctx, m); err != nil {
		h.Log.Warn("contact notification mail failed", "contact_id", id, "err", err)
	}
}

// List returns the inbox, newest first.
func (h *ContactHandler) List(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()
	list, err := h.Contacts.List(ctx)
	if err != nil {
		return serverError(c, h.Log, "list contacts", err)
	}
	return c.JSON(http.StatusOK, list)
}

type replyReq struct {
	Reply string `json:"reply" form:"reply"`
}

// Reply emails the sender and marks the message replied.  The status
// only changes when the mail was accepted.
func (h *ContactHandler) Reply(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid contact id")
	}
	var req replyReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Reply = strings.TrimSpace(req.Reply)
	if req.Reply == "" {
		return errorJSON(c, http.StatusBadRequest, "Reply message is required")
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	ct, err := h.Contacts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return errorJSON(c, http.StatusNotFound, "Contact not found")
		}
		return serverError(c, h.Log, "load contact", err)
	}

	m := mailer.Message{
		To:      ct.Email,
		Subject: "Reply to your message",
		Text:    fmt.Sprintf("Dear %s,\n\n%s\n\nYour original message:\n%s\n", ct.Name, req.Reply, ct.Message),
	}
	if err := h.Mail.Send(ctx, m); err != nil {
		h.Log.Error("reply mail failed", "contact_id", id, "err", err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to send reply")
	}
	if err := h.Contacts.MarkReplied(ctx, id); err != nil {
		return serverError(c, h.Log, "mark replied", err)
	}

	h.Hub.Broadcast(fmt.Sprintf("Replied to contact from %s", ct.Name))
	ev := queue.NewEvent(queue.ContactReplied)
	ev.ContactID, ev.Email = id, ct.Email
	publish(c, h.Log, h.Events, ev)
	return c.JSON(http.StatusOK, echo.Map{"message": "Reply sent successfully"})
}

// Delete removes a message and its attachment.
func (h *ContactHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Invalid contact id")
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	ct, err := h.Contacts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return errorJSON(c, http.StatusNotFound, "Contact not found")
		}
		return serverError(c, h.Log, "load contact", err)
	}
	if ct.FileName != nil && *ct.FileName != "" {
		if err := h.Files.Remove(ctx, *ct.FileName); err != nil {
			h.Log.Warn("remove attachment failed", "contact_id", id, "ref", *ct.FileName, "err", err)
		}
	}
	if err := h.Contacts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return errorJSON(c, http.StatusNotFound, "Contact not found")
		}
		return serverError(c, h.Log, "delete contact", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Contact deleted successfully"})
}
