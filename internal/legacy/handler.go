package legacy

import (
	"crypto/subtle"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	accounts Documents[Account]
	messages Documents[Message]
	validate *validator.Validate
}

func NewHandler(accounts Documents[Account], messages Documents[Message]) *Handler {
	return &Handler{
		accounts: accounts,
		messages: messages,
		validate: validator.New(),
	}
}

// Register mounts the document routes. Every path answers any method; the
// ones it does not support get 400 {success:false}.
func (h *Handler) Register(r fiber.Router) {
	r.All("/accounts/log-in", h.logIn)
	r.All("/accounts/forgot-password", h.forgotPassword)
	r.All("/accounts/:id", h.account)
	r.All("/accounts", h.accountCollection)

	r.All("/messages/:id", h.message)
	r.All("/messages", h.messageCollection)
}

func fail(c *fiber.Ctx, err error) error {
	if err != nil {
		slog.WarnContext(c.UserContext(), "Legacy request failed",
			slog.String("path", c.Path()), slog.String("method", c.Method()), slog.String("error", err.Error()))
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false})
}

func failWith(c *fiber.Ctx, message string, err error) error {
	slog.WarnContext(c.UserContext(), message, slog.String("error", err.Error()))
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": message})
}

func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"success": true, "data": data})
}

func done(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": message})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": message})
}

func bodyMap(c *fiber.Ctx) (map[string]any, error) {
	body := map[string]any{}
	if len(c.Body()) == 0 {
		return body, nil
	}
	err := c.BodyParser(&body)
	return body, err
}

func (h *Handler) accountCollection(c *fiber.Ctx) error {
	ctx := c.UserContext()

	switch c.Method() {
	case fiber.MethodGet:
		accounts, err := h.accounts.List(ctx)
		if err != nil {
			return fail(c, err)
		}
		return ok(c, fiber.StatusOK, accounts)

	case fiber.MethodPost:
		var account Account
		if err := c.BodyParser(&account); err != nil {
			return fail(c, err)
		}
		if err := h.validate.Struct(account); err != nil {
			return fail(c, err)
		}
		if err := h.accounts.Create(ctx, &account); err != nil {
			return fail(c, err)
		}
		return ok(c, fiber.StatusOK, account)

	case fiber.MethodPut:
		body, err := bodyMap(c)
		if err != nil {
			return fail(c, err)
		}
		account, err := h.accounts.Update(ctx, c.Query("_id"), body)
		if err != nil {
			return fail(c, err)
		}
		if account == nil {
			return notFound(c, "Username not found.")
		}
		return ok(c, fiber.StatusCreated, account)

	case fiber.MethodDelete:
		if err := h.accounts.DeleteAll(ctx); err != nil {
			return failWith(c, "There was a problem deleting all accounts.", err)
		}
		return done(c, "All accounts have been deleted.")
	}

	return fail(c, nil)
}

func (h *Handler) account(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")

	switch c.Method() {
	case fiber.MethodGet:
		account, err := h.accounts.Get(ctx, id)
		if err != nil {
			return fail(c, err)
		}
		return ok(c, fiber.StatusOK, account)

	case fiber.MethodPut:
		body, err := bodyMap(c)
		if err != nil {
			return fail(c, err)
		}
		account, err := h.accounts.Update(ctx, id, body)
		if err != nil {
			return fail(c, err)
		}
		return ok(c, fiber.StatusCreated, account)

	case fiber.MethodDelete:
		if err := h.accounts.Delete(ctx, id); err != nil {
			return failWith(c, "There was a problem deleting the account.", err)
		}
		return done(c, "Account has been deleted.")
	}

	return fail(c, nil)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) logIn(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return fail(c, nil)
	}

	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return fail(c, err)
	}

	account, err := h.accounts.FindOne(c.UserContext(), map[string]any{"username": req.Username})
	if err != nil {
		return fail(c, err)
	}
	if account == nil || req.Username == "" {
		return notFound(c, "Username not found.")
	}
	if subtle.ConstantTimeCompare([]byte(account.Password), []byte(req.Password)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Invalid password."})
	}

	return ok(c, fiber.StatusOK, []Account{*account})
}

func (h *Handler) forgotPassword(c *fiber.Ctx) error {
	ctx := c.UserContext()

	switch c.Method() {
	case fiber.MethodGet:
		id := c.Query("_id")
		if id == "" {
			return ok(c, fiber.StatusOK, nil)
		}
		account, err := h.accounts.Get(ctx, id)
		if err != nil {
			return fail(c, err)
		}
		return ok(c, fiber.StatusOK, account)

	case fiber.MethodPost:
		body, err := bodyMap(c)
		if err != nil {
			return fail(c, err)
		}
		account, err := h.accounts.FindOne(ctx, body)
		if err != nil {
			return fail(c, err)
		}
		return ok(c, fiber.StatusOK, account)

	case fiber.MethodPut:
		body, err := bodyMap(c)
		if err != nil {
			return fail(c, err)
		}
		account, err := h.accounts.Update(ctx, c.Query("_id"), body)
		if err != nil {
			return fail(c, err)
		}
		if account == nil {
			return notFound(c, "Username not found.")
		}
		return ok(c, fiber.StatusOK, account)
	}

	return fail(c, nil)
}

func (h *Handler) messageCollection(c *fiber.Ctx) error {
	ctx := c.UserContext()

	switch c.Method() {
	case fiber.MethodGet:
		messages, err := h.messages.List(ctx)
		if err != nil {
			return fail(c, err)
		}
		return ok(c, fiber.StatusOK, messages)

	case fiber.MethodPost:
		var message Message
		if err := c.BodyParser(&message); err != nil {
			return fail(c, err)
		}
		if err := h.validate.Struct(message); err != nil {
			return fail(c, err)
		}
		if err := h.messages.Create(ctx, &message); err != nil {
			return fail(c, err)
		}
		return ok(c, fiber.StatusOK, message)

	case fiber.MethodPut:
		body, err := bodyMap(c)
		if err != nil {
			return fail(c, err)
		}
		message, err := h.messages.Update(ctx, c.Query("_id"), body)
		if err != nil {
			return fail(c, err)
		}
		if message == nil {
			return notFound(c, "Message not found.")
		}
		return ok(c, fiber.StatusOK, message)

	case fiber.MethodDelete:
		if err := h.messages.DeleteAll(ctx); err != nil {
			return failWith(c, "There was a problem deleting all messages.", err)
		}
		return done(c, "All messages have been deleted.")
	}

	return fail(c, nil)
}

func (h *Handler) message(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")

	switch c.Method() {
	case fiber.MethodGet:
		message, err := h.messages.Get(ctx, id)
		if err != nil {
			return fail(c, err)
		}
		return ok(c, fiber.StatusOK, message)

	case fiber.MethodPut:
		body, err := bodyMap(c)
		if err != nil {
			return fail(c, err)
		}
		message, err := h.messages.Update(ctx, id, body)
		if err != nil {
			return fail(c, err)
		}
		return ok(c, fiber.StatusCreated, message)

	case fiber.MethodDelete:
		if err := h.messages.Delete(ctx, id); err != nil {
			return failWith(c, "There was a problem deleting the message.", err)
		}
		return done(c, "Message has been deleted.")
	}

	return fail(c, nil)
}
