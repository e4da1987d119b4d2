package http

import (
	"fmt"
	"net/http"

	"shiptrack/internal/core/application/usecases/commands"
	"shiptrack/internal/core/application/usecases/queries"
	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

// Server implements the shipment REST endpoints.
// It coordinates between HTTP handlers and application use cases.
type Server struct {
	// Command handlers
	createShipmentHandler   commands.CreateShipmentCommandHandler
	claimShipmentHandler    commands.ClaimShipmentCommandHandler
	updateStatusHandler     commands.UpdateStatusCommandHandler
	completeDeliveryHandler commands.CompleteDeliveryCommandHandler

	// Query handlers
	getShipmentHandler   queries.GetShipmentQueryHandler
	listShipmentsHandler queries.ListShipmentsQueryHandler
}

// NewServer creates a new HTTP server with the required command and query handlers.
func NewServer(
	createShipmentHandler commands.CreateShipmentCommandHandler,
	claimShipmentHandler commands.ClaimShipmentCommandHandler,
	updateStatusHandler commands.UpdateStatusCommandHandler,
	completeDeliveryHandler commands.CompleteDeliveryCommandHandler,
	getShipmentHandler queries.GetShipmentQueryHandler,
	listShipmentsHandler queries.ListShipmentsQueryHandler,
) *Server {
	return &Server{
		createShipmentHandler:   createShipmentHandler,
		claimShipmentHandler:    claimShipmentHandler,
		updateStatusHandler:     updateStatusHandler,
		completeDeliveryHandler: completeDeliveryHandler,
		getShipmentHandler:      getShipmentHandler,
		listShipmentsHandler:    listShipmentsHandler,
	}
}

// CreateShipment handles POST /api/v1/shipments - registers a Pending
// shipment owned by the caller.
func (s *Server) CreateShipment(c echo.Context) error {
	var req CreateShipmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	details, err := shipment.NewDetails(
		req.PackageName,
		shipment.Party(req.Sender),
		shipment.Party(req.Receiver),
		req.From,
		req.To,
		req.Cost,
	)
	if err != nil {
		return writeError(c, err)
	}

	cmd, err := commands.NewCreateShipmentCommand(principalFrom(c), details, shipment.TrackingCode(req.TrackingCode))
	if err != nil {
		return writeError(c, err)
	}

	created, err := s.createShipmentHandler.Handle(c.Request().Context(), cmd)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, queries.NewShipmentResponse(created))
}

// ClaimShipment handles POST /api/v1/shipments/:id/claim - assigns the
// calling agent if nobody else got there first.
func (s *Server) ClaimShipment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}

	cmd, err := commands.NewClaimShipmentCommand(id, principalFrom(c))
	if err != nil {
		return writeError(c, err)
	}

	claimed, err := s.claimShipmentHandler.Handle(c.Request().Context(), cmd)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, queries.NewShipmentResponse(claimed))
}

// UpdateStatus handles PATCH /api/v1/shipments/:id/status.
func (s *Server) UpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req UpdateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	status, err := shipment.ParseStatus(req.Status)
	if err != nil {
		return writeError(c, err)
	}

	cmd, err := commands.NewUpdateStatusCommand(id, principalFrom(c), status, req.Location)
	if err != nil {
		return writeError(c, err)
	}

	updated, err := s.updateStatusHandler.Handle(c.Request().Context(), cmd)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, queries.NewShipmentResponse(updated))
}

// CompleteDelivery handles POST /api/v1/shipments/:id/deliver.
func (s *Server) CompleteDelivery(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req CompleteDeliveryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	cmd, err := commands.NewCompleteDeliveryCommand(id, principalFrom(c), req.Signature, req.Photo)
	if err != nil {
		return writeError(c, err)
	}

	delivered, err := s.completeDeliveryHandler.Handle(c.Request().Context(), cmd)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, queries.NewShipmentResponse(delivered))
}

// TrackShipment handles GET /api/v1/shipments/track/:code. It is public and
// accepts a tracking code or a shipment id.
func (s *Server) TrackShipment(c echo.Context) error {
	code, err := pathParam(c, "code")
	if err != nil {
		return writeError(c, err)
	}
	query, err := queries.NewGetShipmentQuery(code)
	if err != nil {
		return writeError(c, err)
	}

	resp, err := s.getShipmentHandler.Handle(c.Request().Context(), query)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ListMine handles GET /api/v1/shipments/mine.
func (s *Server) ListMine(c echo.Context) error {
	return s.list(c, queries.ScopeOwned)
}

// ListAvailable handles GET /api/v1/shipments/available.
func (s *Server) ListAvailable(c echo.Context) error {
	return s.list(c, queries.ScopeAvailable)
}

// ListAll handles GET /api/v1/shipments.
func (s *Server) ListAll(c echo.Context) error {
	return s.list(c, queries.ScopeAll)
}

func (s *Server) list(c echo.Context, scope queries.Scope) error {
	query, err := queries.NewListShipmentsQuery(principalFrom(c), scope)
	if err != nil {
		return writeError(c, err)
	}

	resp, err := s.listShipmentsHandler.Handle(c.Request().Context(), query)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func pathID(c echo.Context) (kernel.UUID, error) {
	raw, err := pathParam(c, "id")
	if err != nil {
		return kernel.UUID{}, err
	}
	return kernel.UUIDFromString(raw)
}

// pathParam binds a simple-style path parameter, undoing percent-encoding.
func pathParam(c echo.Context, name string) (string, error) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), &value, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter %s: %s", name, err))
	}
	return value, nil
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return c.Validate(req)
}
