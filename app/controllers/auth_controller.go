package controllers

import (
	"errors"
	"log"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/oranet/oranet-backend/app/models"
	"github.com/oranet/oranet-backend/app/repository"
	"github.com/oranet/oranet-backend/internal/pkg/mpesa"
	"github.com/oranet/oranet-backend/internal/pkg/session"
	"github.com/oranet/oranet-backend/internal/pkg/usercontext"
)

var authPhonePattern = regexp.MustCompile(`^(07|01|2547|2541)[0-9]{8}$`)

var authValidate = newAuthValidator()

func newAuthValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("kenyan_phone", func(fl validator.FieldLevel) bool {
		return authPhonePattern.MatchString(fl.Field().String())
	})
	return v
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,kenyan_phone"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleRegister creates a new customer account and logs it in.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := authValidate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, registerValidationMessage(err))
	}

	phone := mpesa.NormalizePhoneNumber(req.Phone)
	userRepo := repository.GetGlobalFactory().GetUserRepository()

	if _, err := userRepo.GetByEmailOrPhone(req.Email, phone); err == nil {
		return jsonError(c, fiber.StatusConflict, "User with this email or phone number already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Error checking existing user: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "An error occurred during registration")
	}

	user, err := models.CreateUser(req.Name, req.Email, phone, req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Please check your input and try again")
	}
	if err := userRepo.Create(user); err != nil {
		log.Printf("Error creating user: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "An error occurred during registration")
	}

	if err := startSession(c, user); err != nil {
		log.Printf("Error starting session for new user %s: %v", user.ID, err)
	}
	return jsonSuccess(c, user)
}

// HandleLogin authenticates by email and password. Failures are reported with
// one generic message so the response never reveals which part was wrong.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := authValidate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Please check your input and try again")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByEmail(req.Email)
	if err != nil || !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "Invalid email or password")
	}
	if !user.IsActive {
		return jsonError(c, fiber.StatusUnauthorized, "Invalid email or password")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := userRepo.Update(user); err != nil {
		log.Printf("Error updating last login for %s: %v", user.ID, err)
	}

	if err := startSession(c, user); err != nil {
		log.Printf("Error starting session for %s: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "An error occurred during login")
	}
	return jsonSuccess(c, user)
}

// HandleLogout destroys the current session.
func HandleLogout(c *fiber.Ctx) error {
	if err := session.DestroySession(c); err != nil {
		log.Printf("Error destroying session: %v", err)
	}
	return jsonMessage(c, "Logged out")
}

// HandleMe returns the logged-in user's profile.
func HandleMe(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userID)
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "User not found")
	}
	return jsonSuccess(c, user)
}

func startSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyIsAdmin, user.IsAdmin())
	return sess.Save()
}

func registerValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "Phone":
			return "Invalid phone number format"
		case "Password":
			return "Password must be at least 6 characters"
		case "Email":
			return "Invalid email address"
		case "Name":
			return "Name must be between 3 and 150 characters"
		}
	}
	return "Please check your input and try again"
}
