package user

import (
	common_api "go-regula/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type UserController struct {
	UserService UserService
}

func NewUserController(userService UserService) *UserController {
	return &UserController{
		UserService: userService,
	}
}

// ListUsers godoc
// @Summary      List directory users
// @Tags         users
// @Produce      json
// @Success      200  {array} User
// @Router       /api/users [get]
func (ctrl *UserController) ListUsers(c *fiber.Ctx) error {
	users, err := ctrl.UserService.ListUsers(c.UserContext())
	if err != nil {
		return common_api.ErrorResponse(c, err)
	}
	return c.JSON(users)
}

// GetUser godoc
// @Summary      Get user by ID
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200  {object} User
// @Failure      404  {object} map[string]string "User not found"
// @Router       /api/users/{id} [get]
func (ctrl *UserController) GetUser(c *fiber.Ctx) error {
	u, err := ctrl.UserService.GetUserByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return common_api.ErrorResponse(c, err)
	}
	return c.JSON(u)
}

// CreateUser godoc
// @Summary      Add a user to the directory
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        input body CreateUserRequest true "Create User Input"
// @Success      201  {object} User
// @Failure      400  {object} map[string]string "Invalid request body"
// @Failure      409  {object} map[string]string "User already exists"
// @Router       /api/users [post]
func (ctrl *UserController) CreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	u, err := ctrl.UserService.CreateUser(c.UserContext(), req.Email, req.Role)
	if err != nil {
		return common_api.ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}
