package controller

import (
	"pdfchat-be/internal/pkg/serverutils"
	"pdfchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	Remove(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService service.IDocumentService
}

func NewDocumentController(documentService service.IDocumentService) IDocumentController {
	return &documentController{
		documentService: documentService,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	r.Post("/upload-pdf", c.Upload)
	r.Get("/pdf-status", c.Status)
	r.Post("/remove-pdf", c.Remove)
}

func (c *documentController) Upload(ctx *fiber.Ctx) error {
	fileHeader, err := ctx.FormFile("pdf")
	if err != nil || fileHeader.Filename == "" {
		return fiber.NewError(fiber.StatusBadRequest, "No PDF file provided")
	}
	if !service.IsPDFFilename(fileHeader.Filename) {
		return fiber.NewError(fiber.StatusBadRequest, "Only PDF files are allowed")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Could not read uploaded file")
	}
	defer file.Close()

	res, err := c.documentService.Upload(ctx.UserContext(), serverutils.SessionID(ctx), fileHeader.Filename, file)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *documentController) Status(ctx *fiber.Ctx) error {
	return ctx.JSON(c.documentService.Status(serverutils.SessionID(ctx)))
}

func (c *documentController) Remove(ctx *fiber.Ctx) error {
	if !c.documentService.Remove(ctx.UserContext(), serverutils.SessionID(ctx)) {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.MessageResponse("No PDF to remove"))
	}
	return ctx.JSON(serverutils.MessageResponse("PDF removed successfully"))
}
