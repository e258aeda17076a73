package api

import (
	"strings"

	"github.com/example/taskdesk/domain/task"
	"github.com/example/taskdesk/domain/user"
	"github.com/example/taskdesk/modules/account"
	"github.com/example/taskdesk/modules/taskflow"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// registerRoutes configures all HTTP routes.
func (m *APIModule) registerRoutes(app *fiber.App) {
	app.Get("/health", m.healthHandler)

	// WebSocket endpoint; the token is checked before the upgrade.
	app.Use("/ws", m.upgradeGuard)
	app.Get("/ws", websocket.New(m.handleWebSocket))

	adminOnly := requireRole(user.RoleAdmin)
	employeeOnly := requireRole(user.RoleEmployee)

	admin := app.Group("/api/admin")
	admin.Post("/login", m.login(user.RoleAdmin))
	admin.Post("/employee", m.authenticate, adminOnly, m.createEmployee)
	admin.Get("/employees", m.authenticate, adminOnly, m.listEmployees)
	admin.Get("/employee/:id", m.authenticate, adminOnly, m.getEmployee)
	admin.Delete("/employee/:id", m.authenticate, adminOnly, m.deleteEmployee)
	admin.Post("/task", m.authenticate, adminOnly, m.assignTask)
	admin.Get("/tasks", m.authenticate, adminOnly, m.listTasks)
	admin.Patch("/task/:taskId/status", m.authenticate, adminOnly, m.updateTaskStatus)

	employee := app.Group("/api/employee")
	employee.Post("/login", m.login(user.RoleEmployee))
	employee.Get("/profile", m.authenticate, employeeOnly, m.profile)
	employee.Get("/tasks", m.authenticate, employeeOnly, m.listTasks)
	employee.Patch("/tasks/:taskId", m.authenticate, employeeOnly, m.updateTaskStatus)

	chat := app.Group("/api/chat", m.authenticate)
	chat.Get("/users", m.contacts)
	chat.Get("/online", m.online)
	chat.Get("/unseen", m.unseenCounts)
	chat.Get("/messages/:id", m.openConversation)
	chat.Post("/messages/:id/seen", m.markConversationSeen)
	chat.Patch("/messages/seen/:id", m.markMessageSeen)
	chat.Post("/send/:id", m.sendMessage)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	status := "healthy"
	code := fiber.StatusOK
	if m.healthy != nil && !m.healthy(c.UserContext()) {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(HealthResponse{
		Status: status,
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.registry.Count(),
		},
	})
}

// login handles POST /api/{admin,employee}/login.
func (m *APIModule) login(role user.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			return badRequest(c, "Email and password are required")
		}

		resp, err := m.accounts.Login(c.UserContext(), &account.LoginRequest{
			Email:    req.Email,
			Password: req.Password,
			Role:     role,
		})
		if err != nil {
			return m.fail(c, err)
		}
		return c.JSON(LoginResponse{
			Token:     resp.Token,
			ExpiresAt: resp.ExpiresAt,
			User:      resp.User,
		})
	}
}

// createEmployee handles POST /api/admin/employee.
func (m *APIModule) createEmployee(c *fiber.Ctx) error {
	var req CreateEmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	u, err := m.accounts.CreateEmployee(c.UserContext(), &account.CreateEmployeeRequest{
		Actor:      identityFrom(c),
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Position:   req.Position,
		Department: req.Department,
	})
	if err != nil {
		return m.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

// listEmployees handles GET /api/admin/employees.
func (m *APIModule) listEmployees(c *fiber.Ctx) error {
	employees, err := m.accounts.ListEmployees(c.UserContext(), identityFrom(c))
	if err != nil {
		return m.fail(c, err)
	}
	if employees == nil {
		employees = []user.User{}
	}
	return c.JSON(EmployeeListResponse{Employees: employees, Total: len(employees)})
}

// getEmployee handles GET /api/admin/employee/:id.
func (m *APIModule) getEmployee(c *fiber.Ctx) error {
	return m.employeeDetail(c, c.Params("id"))
}

// profile handles GET /api/employee/profile.
func (m *APIModule) profile(c *fiber.Ctx) error {
	return m.employeeDetail(c, identityFrom(c).ID)
}

func (m *APIModule) employeeDetail(c *fiber.Ctx, id string) error {
	resp, err := m.accounts.GetEmployee(c.UserContext(), &account.EmployeeRequest{
		Actor:      identityFrom(c),
		EmployeeID: id,
	})
	if err != nil {
		return m.fail(c, err)
	}
	tasks := resp.Tasks
	if tasks == nil {
		tasks = []task.Task{}
	}
	return c.JSON(EmployeeDetailResponse{Employee: resp.User, Tasks: tasks})
}

// deleteEmployee handles DELETE /api/admin/employee/:id.
func (m *APIModule) deleteEmployee(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := m.accounts.DeleteEmployee(c.UserContext(), &account.EmployeeRequest{
		Actor:      identityFrom(c),
		EmployeeID: id,
	}); err != nil {
		return m.fail(c, err)
	}
	return c.JSON(DeletedResponse{Deleted: true, ID: id})
}

// assignTask handles POST /api/admin/task.
func (m *APIModule) assignTask(c *fiber.Ctx) error {
	var req AssignTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	t, err := m.tasks.AssignTask(c.UserContext(), &taskflow.AssignTaskRequest{
		Actor:       identityFrom(c),
		EmployeeID:  req.EmployeeID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return m.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

// listTasks handles GET /api/admin/tasks and GET /api/employee/tasks.
// Employees only ever see their own tasks.
func (m *APIModule) listTasks(c *fiber.Ctx) error {
	filter := task.Filter{
		AssignedTo: c.Query("assigned_to"),
		CreatedBy:  c.Query("created_by"),
	}
	if s := c.Query("status"); s != "" {
		status, err := task.ParseStatus(s)
		if err != nil {
			return badRequest(c, err.Error())
		}
		filter.Status = status
	}

	tasks, err := m.tasks.ListTasks(c.UserContext(), &taskflow.ListTasksRequest{
		Actor:  identityFrom(c),
		Filter: filter,
	})
	if err != nil {
		return m.fail(c, err)
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return c.JSON(TaskListResponse{Tasks: tasks, Total: len(tasks)})
}

// updateTaskStatus handles PATCH /api/admin/task/:taskId/status and
// PATCH /api/employee/tasks/:taskId.
func (m *APIModule) updateTaskStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	t, err := m.tasks.SetTaskStatus(c.UserContext(), &taskflow.SetStatusRequest{
		Actor:  identityFrom(c),
		TaskID: c.Params("taskId"),
		Status: req.Status,
	})
	if err != nil {
		return m.fail(c, err)
	}
	return c.JSON(t)
}
