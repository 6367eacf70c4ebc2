package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"workforce-license-engine/internal/service"
)

func HandleGetLogs(c *fiber.Ctx) error {
	// 获取分页参数
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "10"))

	q := service.LogQuery{
		TargetID: c.Query("target_id"),
		Action:   c.Query("action"),
	}

	logs, total, err := service.GetOperationLogs(q, page, pageSize)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load logs",
		})
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"total": total,
		"page":  page,
	})
}

func HandleGetUserLogs(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "10"))

	// 从上下文获取用户ID
	userID := c.Locals("userID").(uint)

	logs, total, err := service.GetOperationLogs(service.LogQuery{UserID: userID}, page, pageSize)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load logs",
		})
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"total": total,
		"page":  page,
	})
}
