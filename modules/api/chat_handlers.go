package api

import (
	"github.com/example/taskdesk/domain/chat"
	"github.com/gofiber/fiber/v2"
)

// contacts handles GET /api/chat/users: everyone the caller may talk to,
// with unseen counts and presence.
func (m *APIModule) contacts(c *fiber.Ctx) error {
	viewer := identityFrom(c)

	users, err := m.accounts.Contacts(c.UserContext(), viewer)
	if err != nil {
		return m.fail(c, err)
	}
	counts, err := m.chat.UnseenCounts(c.UserContext(), viewer.ID)
	if err != nil {
		return m.fail(c, err)
	}

	resp := ContactListResponse{Contacts: make([]ContactResponse, 0, len(users))}
	for _, u := range users {
		_, online := m.registry.Resolve(u.ID)
		resp.Contacts = append(resp.Contacts, ContactResponse{
			User:   u,
			Unseen: counts[u.ID],
			Online: online,
		})
	}
	return c.JSON(resp)
}

// online handles GET /api/chat/online.
func (m *APIModule) online(c *fiber.Ctx) error {
	return c.JSON(OnlineResponse{Users: m.registry.Online()})
}

// unseenCounts handles GET /api/chat/unseen.
func (m *APIModule) unseenCounts(c *fiber.Ctx) error {
	counts, err := m.chat.UnseenCounts(c.UserContext(), identityFrom(c).ID)
	if err != nil {
		return m.fail(c, err)
	}
	if counts == nil {
		counts = chat.UnseenCounts{}
	}
	return c.JSON(UnseenResponse{Counts: counts})
}

// openConversation handles GET /api/chat/messages/:id. The history is
// returned as it was before the counterpart's messages were marked seen.
func (m *APIModule) openConversation(c *fiber.Ctx) error {
	counterpart := c.Params("id")
	messages, err := m.chat.OpenConversation(c.UserContext(), identityFrom(c).ID, counterpart)
	if err != nil {
		return m.fail(c, err)
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	return c.JSON(ConversationResponse{With: counterpart, Messages: messages})
}

// markConversationSeen handles POST /api/chat/messages/:id/seen.
func (m *APIModule) markConversationSeen(c *fiber.Ctx) error {
	counterpart := c.Params("id")
	marked, err := m.chat.MarkConversationSeen(c.UserContext(), identityFrom(c).ID, counterpart)
	if err != nil {
		return m.fail(c, err)
	}
	return c.JSON(MarkedResponse{With: counterpart, Marked: marked})
}

// markMessageSeen handles PATCH /api/chat/messages/seen/:id.
func (m *APIModule) markMessageSeen(c *fiber.Ctx) error {
	msg, err := m.chat.MarkSeen(c.UserContext(), c.Params("id"), identityFrom(c).ID)
	if err != nil {
		return m.fail(c, err)
	}
	return c.JSON(msg)
}

// sendMessage handles POST /api/chat/send/:id.
func (m *APIModule) sendMessage(c *fiber.Ctx) error {
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	msg, err := m.chat.SendMessage(c.UserContext(), identityFrom(c).ID, c.Params("id"), req.Text)
	if err != nil {
		return m.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}
