package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-des/internal/screen"
	"github.com/i474232898/weather-des/internal/users"
)

const sessionKey = "session"

type credentialsBody struct {
	User     string `json:"user" validate:"required,max=63"`
	Password string `json:"password" validate:"required,max=72"`
}

type screenBody struct {
	Screen string `json:"screen" validate:"required"`
}

type messageBody struct {
	Message string `json:"message" validate:"required,max=255"`
}

func (h *handler) bindBody(c *fiber.Ctx, body any) error {
	if err := c.BodyParser(body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// requireSession resolves the session token header and stores the session
// in the request locals.
func (h *handler) requireSession(c *fiber.Ctx) error {
	s, err := h.Users.Session(c.Get(SessionHeader))
	if err != nil {
		return h.fail(err)
	}
	c.Locals(sessionKey, s)
	return c.Next()
}

func currentSession(c *fiber.Ctx) users.Session {
	s, _ := c.Locals(sessionKey).(users.Session)
	return s
}

func (h *handler) register(c *fiber.Ctx) error {
	var body credentialsBody
	if err := h.bindBody(c, &body); err != nil {
		return err
	}
	if err := h.Users.Register(c.UserContext(), body.User, body.Password); err != nil {
		return h.fail(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Registration Success"})
}

func (h *handler) login(c *fiber.Ctx) error {
	var body credentialsBody
	if err := h.bindBody(c, &body); err != nil {
		return err
	}
	s, err := h.Users.Login(c.UserContext(), body.User, body.Password)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(fiber.Map{
		"message": "Login Success",
		"session": sessionView(s),
	})
}

func (h *handler) logout(c *fiber.Ctx) error {
	s := currentSession(c)
	if err := h.Users.Logout(c.UserContext(), s.Token); err != nil {
		return h.fail(err)
	}
	return c.JSON(fiber.Map{"message": "Logged Out"})
}

func (h *handler) getScreen(c *fiber.Ctx) error {
	return c.JSON(sessionView(currentSession(c)))
}

func (h *handler) setScreen(c *fiber.Ctx) error {
	var body screenBody
	if err := h.bindBody(c, &body); err != nil {
		return err
	}
	id, err := screen.Parse(body.Screen)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	s, err := h.Users.SetScreen(currentSession(c).Token, id)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(sessionView(s))
}

func (h *handler) nextScreen(c *fiber.Ctx) error {
	s, err := h.Users.Next(currentSession(c).Token)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(sessionView(s))
}

func (h *handler) prevScreen(c *fiber.Ctx) error {
	s, err := h.Users.Prev(currentSession(c).Token)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(sessionView(s))
}

func (h *handler) chatHistory(c *fiber.Ctx) error {
	id, err := screen.Parse(c.Params("screen"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	msgs, err := h.Chat.History(c.UserContext(), id)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(fiber.Map{
		"screen":     id,
		"messages":   msgs,
		"transcript": h.Chat.Transcript(msgs),
	})
}

func (h *handler) chatSend(c *fiber.Ctx) error {
	id, err := screen.Parse(c.Params("screen"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	var body messageBody
	if err := h.bindBody(c, &body); err != nil {
		return err
	}

	msg, err := h.Chat.Send(c.UserContext(), id, currentSession(c).User, body.Message)
	if err != nil {
		return h.fail(err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// sessionView is the public form of a session, including the screen title.
func sessionView(s users.Session) fiber.Map {
	return fiber.Map{
		"token":      s.Token,
		"user":       s.User,
		"screen":     s.Screen,
		"title":      s.Screen.Title(),
		"loggedInAt": s.LoggedInAt,
	}
}
