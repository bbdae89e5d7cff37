package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chative-salesdesk/server/internal/agent/model"
	errx "github.com/chative-salesdesk/server/internal/core/error"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

// Catalog is the part of the catalog index operators act on.
type Catalog interface {
	Reload(ctx context.Context) error
	Stats() model.CatalogStats
}

// Closer completes a client's active assignment.
type Closer interface {
	Close(ctx context.Context, clientID string) (*model.Assignment, error)
}

// SenderForgetter drops per-sender classifier state after a reset.
type SenderForgetter interface {
	ForgetSender(senderID string)
}

const usage = `comandos:
  stats               resumen de clientes, asignaciones y asesores
  client <id>         ficha de un cliente y sus ultimos mensajes
  reset <id>          borra el cliente y cierra su asignacion
  close <id>          cierra la asignacion activa del cliente
  agents              lista de asesores
  agent on|off <id>   activa o desactiva un asesor
  reload              recarga el catalogo`

// Commands runs textual operator commands. The CLI and the HTTP admin route share it.
type Commands struct {
	store   model.Store
	router  Closer
	catalog Catalog
	forget  SenderForgetter
}

func New(store model.Store, router Closer, catalog Catalog, forget SenderForgetter) *Commands {
	return &Commands{store: store, router: router, catalog: catalog, forget: forget}
}

// Execute parses one command line and returns its textual output. A leading "/" or "!"
// is accepted. Bad input yields an errx.Invalid error carrying the usage.
func (c *Commands) Execute(ctx context.Context, line string) (string, error) {
	fields := strings.Fields(strings.TrimLeft(strings.TrimSpace(line), "/!"))
	if len(fields) == 0 {
		return "", errx.Invalid("%s", usage)
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	logx.Info().Str("command", name).Strs("args", args).Msg("admin command")

	switch name {
	case "help":
		return usage, nil
	case "stats":
		return c.stats(ctx)
	case "client":
		id, err := oneArg(name, args)
		if err != nil {
			return "", err
		}
		return c.client(ctx, id)
	case "reset":
		id, err := oneArg(name, args)
		if err != nil {
			return "", err
		}
		if err := c.Reset(ctx, id); err != nil {
			return "", err
		}
		return fmt.Sprintf("cliente %s reiniciado", id), nil
	case "close":
		id, err := oneArg(name, args)
		if err != nil {
			return "", err
		}
		closed, err := c.CloseAssignment(ctx, id)
		if err != nil {
			return "", err
		}
		if closed == nil {
			return fmt.Sprintf("el cliente %s no tiene asignacion activa", id), nil
		}
		return fmt.Sprintf("asignacion de %s con %s cerrada", id, closed.AgentID), nil
	case "agents":
		return c.agents(ctx)
	case "agent":
		if len(args) != 2 || (args[0] != "on" && args[0] != "off") {
			return "", errx.Invalid("uso: agent on|off <id>")
		}
		active := args[0] == "on"
		if err := c.store.SetAgentActive(ctx, args[1], active); err != nil {
			return "", err
		}
		if active {
			return fmt.Sprintf("asesor %s activado", args[1]), nil
		}
		return fmt.Sprintf("asesor %s desactivado", args[1]), nil
	case "reload":
		if err := c.catalog.Reload(ctx); err != nil {
			return "", errx.New(err, http.StatusBadGateway, "catalog reload failed")
		}
		s := c.catalog.Stats()
		return fmt.Sprintf("catalogo recargado: %d productos (%d disponibles) en %d categorias", s.Items, s.Available, len(s.Categories)), nil
	default:
		return "", errx.Invalid("comando desconocido %q\n%s", name, usage)
	}
}

// Reset removes the client, its messages and its active assignment.
func (c *Commands) Reset(ctx context.Context, clientID string) error {
	if err := c.store.ResetClient(ctx, clientID); err != nil {
		return err
	}
	if c.forget != nil {
		c.forget.ForgetSender(clientID)
	}
	return nil
}

// CloseAssignment completes the client's active assignment; nil means there was none.
func (c *Commands) CloseAssignment(ctx context.Context, clientID string) (*model.Assignment, error) {
	return c.router.Close(ctx, clientID)
}

// Report is the structured form of the stats command.
type Report struct {
	model.Stats
	Catalog model.CatalogStats `json:"catalog"`
}

func (c *Commands) Report(ctx context.Context) (*Report, error) {
	st, err := c.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Report{Stats: *st, Catalog: c.catalog.Stats()}, nil
}

// ClientView is a client record with its recent messages and active assignment.
type ClientView struct {
	Client     *model.ClientRecord `json:"client"`
	Assignment *model.Assignment   `json:"assignment,omitempty"`
	Messages   []model.Message     `json:"messages"`
}

func (c *Commands) Client(ctx context.Context, id string, limit int) (*ClientView, error) {
	client, err := c.store.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	assignment, err := c.store.ActiveAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	msgs, err := c.store.RecentMessages(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	return &ClientView{Client: client, Assignment: assignment, Messages: msgs}, nil
}

func (c *Commands) stats(ctx context.Context) (string, error) {
	r, err := c.Report(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "clientes: %d (escalados: %d)\n", r.Clients, r.EscalatedClients)
	fmt.Fprintf(&b, "asignaciones activas: %d\n", r.ActiveAssignments)
	fmt.Fprintf(&b, "catalogo: %d productos (%d disponibles)", r.Catalog.Items, r.Catalog.Available)
	if !r.Catalog.LoadedAt.IsZero() {
		fmt.Fprintf(&b, ", cargado %s", r.Catalog.LoadedAt.Format(time.RFC3339))
	}
	b.WriteString("\n")
	writeAgents(&b, r.Agents)
	return strings.TrimRight(b.String(), "\n"), nil
}

func (c *Commands) client(ctx context.Context, id string) (string, error) {
	v, err := c.Client(ctx, id, 5)
	if err != nil {
		if errors.Is(err, errx.ErrNotFound) {
			return fmt.Sprintf("cliente %s no encontrado", id), nil
		}
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "cliente: %s\n", v.Client.ID)
	if v.Client.DisplayName != "" {
		fmt.Fprintf(&b, "nombre: %s\n", v.Client.DisplayName)
	}
	fmt.Fprintf(&b, "estado: %s\n", v.Client.Status)
	if v.Client.LastOutcome != "" {
		fmt.Fprintf(&b, "ultima clasificacion: %s\n", v.Client.LastOutcome)
	}
	fmt.Fprintf(&b, "mensajes: %d\n", v.Client.MessageCount)
	if v.Assignment != nil {
		fmt.Fprintf(&b, "asesor: %s desde %s\n", v.Assignment.AgentID, v.Assignment.AssignedAt.Format(time.RFC3339))
	}
	for _, m := range v.Messages {
		fmt.Fprintf(&b, "- [%s] %s\n", m.Role, m.Text)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (c *Commands) agents(ctx context.Context) (string, error) {
	agents, err := c.store.ListAgents(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	writeAgents(&b, agents)
	return strings.TrimRight(b.String(), "\n"), nil
}

func writeAgents(b *strings.Builder, agents []model.Agent) {
	if len(agents) == 0 {
		b.WriteString("sin asesores configurados\n")
		return
	}
	b.WriteString("asesores:\n")
	tw := tabwriter.NewWriter(b, 0, 4, 2, ' ', 0)
	for _, a := range agents {
		state := "inactivo"
		if a.Active {
			state = "activo"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%d\n", a.ID, a.Name, state, a.LifetimeAssignmentCount)
	}
	_ = tw.Flush()
}

func oneArg(cmd string, args []string) (string, error) {
	if len(args) != 1 {
		return "", errx.Invalid("uso: %s <id>", cmd)
	}
	return args[0], nil
}
