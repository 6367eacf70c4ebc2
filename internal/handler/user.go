package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"workforce-license-engine/internal/database"
	"workforce-license-engine/internal/model"
	"workforce-license-engine/internal/service"
	"workforce-license-engine/internal/util"
)

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"omitempty,oneof=admin operator"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// HandleUserRegister 管理员创建运营账户
func HandleUserRegister(c *fiber.Ctx) error {
	input := new(RegisterInput)
	if err := c.BodyParser(input); err != nil {
		return invalidInput(c)
	}
	if fields := util.ValidateStruct(input); fields != nil {
		return validationFailed(c, fields)
	}
	if input.Role == "" {
		input.Role = model.RoleOperator
	}

	// 密码加密
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &model.User{
		Username: input.Username,
		Password: string(hashedPassword),
		Email:    input.Email,
		Role:     input.Role,
	}

	if err := database.DB.Create(user).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "username or email already exists",
		})
	}

	adminID, _ := c.Locals("userID").(uint)
	if err := service.LogOperation(adminID, model.ActionUserRegistered, "user", strconv.FormatUint(uint64(user.ID), 10), fiber.Map{
		"username": user.Username,
		"role":     user.Role,
	}); err != nil {
		zap.L().Warn("write operation log failed", zap.Error(err))
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

func HandleUserLogin(c *fiber.Ctx) error {
	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		return invalidInput(c)
	}
	if fields := util.ValidateStruct(input); fields != nil {
		return validationFailed(c, fields)
	}

	var user model.User
	if err := database.DB.Where("username = ?", input.Username).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid username or password",
		})
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		recordLogin(c, user.ID, model.LoginFailed)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid username or password",
		})
	}

	recordLogin(c, user.ID, model.LoginSuccess)
	touchLastLogin(&user, time.Now())

	// 生成JWT令牌
	token, err := util.GenerateToken(user.ID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

func recordLogin(c *fiber.Ctx, userID uint, status string) {
	loginLog := &model.LoginLog{
		UserID:    userID,
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Status:    status,
		CreatedAt: time.Now(),
	}
	if err := database.DB.Create(loginLog).Error; err != nil {
		zap.L().Warn("write login log failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

func touchLastLogin(user *model.User, at time.Time) {
	user.LastLogin = at
	if err := database.DB.Model(user).Update("last_login", at).Error; err != nil {
		zap.L().Warn("update last login failed", zap.Uint("user_id", user.ID), zap.Error(err))
	}
}

func HandleUserInfo(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var user model.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "user not found",
		})
	}

	return c.JSON(user)
}

func HandleGetLoginLogs(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "10"))

	// 限制页面大小
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	var logs []model.LoginLog
	var total int64

	db := database.DB.Model(&model.LoginLog{}).Where("user_id = ?", userID)

	if err := db.Count(&total).Error; err != nil {
		return err
	}

	offset := (page - 1) * pageSize
	if err := db.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&logs).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"total": total,
		"page":  page,
		"size":  pageSize,
	})
}

// HandleChangePassword 修改当前用户密码
func HandleChangePassword(c *fiber.Ctx) error {
	input := new(ChangePasswordInput)
	if err := c.BodyParser(input); err != nil {
		return invalidInput(c)
	}
	if fields := util.ValidateStruct(input); fields != nil {
		return validationFailed(c, fields)
	}

	userID := c.Locals("userID").(uint)

	var user model.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "user not found",
		})
	}

	// 验证当前密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.CurrentPassword)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "current password is incorrect",
		})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := database.DB.Model(&user).Update("password", string(hashedPassword)).Error; err != nil {
		return err
	}

	if err := service.LogOperation(userID, model.ActionPasswordChanged, "user", strconv.FormatUint(uint64(userID), 10), nil); err != nil {
		zap.L().Warn("write operation log failed", zap.Error(err))
	}

	return c.JSON(fiber.Map{
		"message": "password updated",
	})
}

// HandleValidateToken 验证token的有效性
func HandleValidateToken(c *fiber.Ctx) error {
	type TokenInput struct {
		Token string `json:"token"`
	}

	input := new(TokenInput)
	if err := c.BodyParser(input); err != nil {
		return invalidInput(c)
	}

	if input.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "token is required",
			"valid": false,
		})
	}

	userID, err := util.ValidateToken(input.Token)
	if err != nil {
		return c.JSON(fiber.Map{
			"valid": false,
			"error": "invalid token",
		})
	}

	// 检查用户是否存在
	var user model.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return c.JSON(fiber.Map{
			"valid": false,
			"error": "user not found",
		})
	}

	return c.JSON(fiber.Map{
		"valid": true,
		"user": fiber.Map{
			"id":       userID,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}
