package serverutils

import "github.com/gofiber/fiber/v2"

// ErrorResponse is the body of every failed request.
func ErrorResponse(message string) fiber.Map {
	return fiber.Map{"error": message}
}

// MessageResponse is the body of requests that only report an outcome.
func MessageResponse(message string) fiber.Map {
	return fiber.Map{"message": message}
}
