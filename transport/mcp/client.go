package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/parking-lot-game/game/engine"
	"github.com/wricardo/parking-lot-game/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Parking Lot Puzzle",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Parking Lot Puzzle - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Slide vehicles along their own axis until the goal vehicle (A) reaches the exit.

AVAILABLE TOOLS:
- create_session: Create new puzzle session
- list_sessions: List all active sessions
- get_session: Get session details
- game_state: Get the current grid, vehicles and legal moves
- legal_moves: List every legal (vehicle, displacement) pair
- move: Slide one vehicle - requires intent explanation
- bulk_move: Several slides at once - requires intent explanation
- reset_game: Restore the initial layout
- move_history: View past move attempts
- list_configs: List available puzzles
- game_instructions: Rules and notation
- describe_cell: Get detailed info about a specific grid cell

NOTE: The 'intent' parameter on move/bulk_move tools serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

// stringProp and friends build JSON schema properties
func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func integerProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

func booleanProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": description}
}

func sessionOnly() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": stringProp("Session ID"),
		},
		Required: []string{"session_id"},
	}
}

func noArgs() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new puzzle session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": stringProp("ID of the puzzle config to use (optional, see list_configs)"),
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active puzzle sessions",
		InputSchema: noArgs(),
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionOnly(),
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current grid, vehicles and legal moves",
		InputSchema: sessionOnly(),
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "legal_moves",
		Description: "List the legal displacements of every vehicle",
		InputSchema: sessionOnly(),
	}, c.handleLegalMoves)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Slide a vehicle along its axis. Negative displacement moves left/up, positive moves right/down.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id":   stringProp("Session ID"),
				"vehicle":      stringProp("Vehicle identifier, e.g. A"),
				"displacement": integerProp("Signed number of cells to slide; never zero"),
				"intent":       stringProp("Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)"),
				"reset":        booleanProp("Reset before moving"),
			},
			Required: []string{"session_id", "vehicle", "displacement"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: "Execute several slides in order, stopping at the first rejected one",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": stringProp("Session ID"),
				"moves": map[string]interface{}{
					"type":        "array",
					"description": `Moves as objects {"vehicle":"E","displacement":-2} or compact strings like "E-2", "A+4"`,
					"items": map[string]interface{}{
						"oneOf": []interface{}{
							map[string]interface{}{"type": "string"},
							map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"vehicle":      map[string]interface{}{"type": "string"},
									"displacement": map[string]interface{}{"type": "integer"},
								},
								"required": []string{"vehicle", "displacement"},
							},
						},
					},
				},
				"intent": stringProp("Brief explanation of the intent behind this sequence of moves (serves as a rubber duck to help explain your reasoning)"),
				"reset":  booleanProp("Reset before moving"),
			},
			Required: []string{"session_id", "moves"},
		},
	}, c.handleBulkMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the puzzle to its initial layout",
		InputSchema: sessionOnly(),
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get move history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": stringProp("Session ID"),
				"page":       integerProp("Page number"),
				"limit":      integerProp("Items per page"),
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Oldest first (asc) or newest first (desc)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available puzzle configurations",
		InputSchema: noArgs(),
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the puzzle rules and move notation",
		InputSchema: noArgs(),
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get detailed information about a specific grid cell: empty, wall, or which vehicle covers it and how that vehicle can move.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": stringProp("Session ID"),
				"x":          integerProp("X coordinate (column) of the cell to describe (0-based)"),
				"y":          integerProp("Y coordinate (row) of the cell to describe (0-based)"),
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeStdio runs the MCP server over stdin/stdout until the input closes
func (c *Client) ServeStdio() error {
	return server.ServeStdio(c.mcpServer)
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Argument helpers

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// intArg reads a JSON number or numeric string
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// parseStep reads compact notation: a vehicle symbol followed by a signed
// displacement, e.g. "E-2", "A+4" or "C3"
func parseStep(s string) (engine.Step, error) {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size == len(s) {
		return engine.Step{}, fmt.Errorf("invalid move %q: expected vehicle and displacement", s)
	}
	d, err := strconv.Atoi(strings.TrimSpace(s[size:]))
	if err != nil {
		return engine.Step{}, fmt.Errorf("invalid move %q: %v", s, err)
	}
	return engine.Step{Vehicle: string(r), Displacement: d}, nil
}

// parseSteps accepts moves as compact strings or {vehicle, displacement} objects
func parseSteps(raw []interface{}) ([]engine.Step, error) {
	steps := make([]engine.Step, 0, len(raw))
	for i, m := range raw {
		switch v := m.(type) {
		case string:
			step, err := parseStep(v)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		case map[string]interface{}:
			vehicle, _ := v["vehicle"].(string)
			d, ok := intArg(v, "displacement")
			if vehicle == "" || !ok {
				return nil, fmt.Errorf("move %d: vehicle and displacement are required", i+1)
			}
			steps = append(steps, engine.Step{Vehicle: vehicle, Displacement: d})
		default:
			return nil, fmt.Errorf("move %d: unsupported value %v", i+1, m)
		}
	}
	return steps, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)
	if configID == "" {
		configID, _ = args["config_name"].(string)
	}

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s", session.ID, session.ConfigName, formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := ""
		if s.GameState != nil {
			status = fmt.Sprintf(", Moves: %d", s.GameState.Moves)
			if s.GameState.Solved {
				status += ", solved"
			}
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Created: %s%s)\n",
			s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"), status)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleLegalMoves(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var moves service.LegalMovesResponse
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/legal-moves"), nil, &moves); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Legal moves (%d):\n", moves.Count)
	b.WriteString(formatLegalMoves(moves.LegalMoves))
	if len(moves.Movable) > 0 {
		fmt.Fprintf(&b, "Movable: %s\n", strings.Join(moves.Movable, ","))
	}
	if moves.Solved {
		b.WriteString("\n🎉 SOLVED!")
	} else if moves.GameOver {
		b.WriteString("\n💀 GAME OVER")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	vehicle, _ := args["vehicle"].(string)
	reset, _ := args["reset"].(bool)

	// intent is rubber duck debugging for the caller; it is not forwarded
	displacement, ok := intArg(args, "displacement")
	if !ok {
		return mcp.NewToolResultError("displacement must be an integer"), nil
	}

	body := map[string]interface{}{
		"vehicle":      vehicle,
		"displacement": displacement,
		"reset":        reset,
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	movesRaw, _ := args["moves"].([]interface{})
	reset, _ := args["reset"].(bool)

	steps, err := parseSteps(movesRaw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{
		"moves": steps,
		"reset": reset,
	}

	var result service.BulkMoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/bulk-move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkMoveResult(sessionID, &result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", strconv.Itoa(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", strconv.Itoa(limit))
	}
	if order, ok := args["order"].(string); ok && order != "" {
		params.Set("order", order)
	}

	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Grid: %dx%d, Vehicles: %d, Exit: %s",
			config.Name, config.ConfigID, config.Description, config.Width, config.Height, config.Vehicles, config.Exit)
		if config.MaxMoves > 0 {
			fmt.Fprintf(&b, ", Max moves: %d", config.MaxMoves)
		}
		b.WriteString("\n\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `🚗 Parking Lot Puzzle - Complete Instructions

GAME OBJECTIVE:
Free the goal vehicle (A) by sliding the other vehicles out of its way until A reaches the exit.

GRID LEGEND:
• . - Empty cell
• # - Wall (never moves, blocks everything)
• A - Goal vehicle
• B, C, D... - Other vehicles; every cell with the same letter belongs to one vehicle
• @ - Exit marker, when the puzzle has one (otherwise the exit is a grid edge)

Coordinates are (x, y): x is the column and y the row, both starting at 0 in the top-left corner.

MOVEMENT RULES:
• A vehicle only slides along its own axis: horizontal vehicles left/right, vertical vehicles up/down
• Displacement is a signed cell count: negative moves left/up, positive moves right/down
• A move of N cells needs every one of the N cells in front of the vehicle to be empty
• Vehicles never rotate, jump, or leave the grid
• Zero displacement is never a valid move

MOVE NOTATION:
• move tool: vehicle="E", displacement=-2
• bulk_move tool: ["E-2", "D+2", "F-1"] or [{"vehicle":"E","displacement":-2}]

ERROR CODES:
• blocked - a wall or another vehicle is in the way (the offending cell is reported)
• out_of_bounds - the vehicle would leave the grid
• unknown_vehicle - no vehicle has that identifier
• invalid_displacement - displacement was 0
• game_over - the puzzle is already solved or out of moves

A rejected move changes nothing on the grid. Every attempt is still recorded in the history.

VICTORY CONDITIONS:
- The goal vehicle touches the exit: its leading cell is on the exit edge or covers the exit marker
- Game displays "🎉 SOLVED!" and further moves are rejected until reset

GAME OVER CONDITIONS:
- Some puzzles have a move budget (max_moves); only successful moves count
- Game displays "💀 GAME OVER" when the budget runs out

🤖 STRATEGY TIPS:
1. Find what blocks the goal vehicle's path to the exit
2. For each blocker, work out which way it must slide to clear the goal's row or column
3. Recurse: what blocks the blocker?
4. Use legal_moves instead of guessing; it lists every legal displacement per vehicle
5. Use bulk_move once you have a plan; it stops at the first rejected move
6. describe_cell tells you exactly what occupies a coordinate

SESSION MANAGEMENT:
- Multiple puzzle sessions can run simultaneously
- Each session has unique 4-character ID
- Sessions maintain independent state and configuration

Good luck clearing the lot! 🅿️`

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y must be integers"), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if session.GameState == nil {
		return mcp.NewToolResultError("session has no game state"), nil
	}

	result, err := describeCell(session.GameState, session.GameConfig, x, y)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result), nil
}

// describeCell explains what occupies (x, y) in a state snapshot
func describeCell(state *engine.GameState, config *engine.PuzzleConfig, x, y int) (string, error) {
	if x < 0 || x >= state.Width || y < 0 || y >= state.Height {
		return "", fmt.Errorf("coordinates (%d, %d) are out of bounds. Grid is %dx%d (x 0-%d, y 0-%d)",
			x, y, state.Width, state.Height, state.Width-1, state.Height-1)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cell at position (%d, %d):\n━━━━━━━━━━━━━━━━━━━━━━━━\n", x, y)

	p := engine.Position{X: x, Y: y}
	for _, v := range state.Vehicles {
		if !v.Covers(p) {
			continue
		}
		fmt.Fprintf(&b, "Kind: vehicle\nVehicle: %s\nOrientation: %s\nLength: %d\nAnchor: (%d,%d)\n",
			v.ID, v.Orientation, v.Length, v.Anchor.X, v.Anchor.Y)
		if v.Goal {
			b.WriteString("This is the GOAL vehicle.\n")
		}
		if moves, ok := state.LegalMoves[v.ID]; ok {
			if len(moves) == 0 {
				b.WriteString("Legal displacements: none (vehicle is stuck)\n")
			} else {
				fmt.Fprintf(&b, "Legal displacements: %v\n", moves)
			}
		}
		return b.String(), nil
	}

	empty := string(engine.DefaultEmpty)
	if config != nil && config.Alphabet != nil && config.Alphabet.Empty != "" {
		empty = config.Alphabet.Empty
	}
	symbol := cellSymbol(state, x, y)
	switch symbol {
	case empty:
		b.WriteString("Kind: empty\nVehicles can slide through this cell.\n")
	default:
		fmt.Fprintf(&b, "Kind: wall\nSymbol: %s\nNothing can enter this cell.\n", symbol)
	}
	return b.String(), nil
}

// cellSymbol returns the rendered symbol at (x, y)
func cellSymbol(state *engine.GameState, x, y int) string {
	if y >= len(state.Rows) {
		return ""
	}
	row := []rune(state.Rows[y])
	if x >= len(row) {
		return ""
	}
	return string(row[x])
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder

	// Header
	fmt.Fprintf(&result, "Config: %s | Goal: %s | Exit: %s | Moves: %d",
		state.ConfigName, state.GoalVehicle, state.Exit, state.Moves)
	if state.MaxMoves > 0 {
		fmt.Fprintf(&result, "/%d", state.MaxMoves)
	}
	fmt.Fprintf(&result, " | Attempts: %d\n\n", state.TotalMoves)

	result.WriteString(formatGrid(state.Rows))

	if len(state.LegalMoves) > 0 {
		result.WriteString("\nLegal moves:\n")
		result.WriteString(formatLegalMoves(state.LegalMoves))
	}

	// Status
	if state.Solved {
		result.WriteString("\n🎉 SOLVED!")
	} else if state.GameOver {
		result.WriteString("\n💀 GAME OVER")
	}

	if state.Message != "" {
		fmt.Fprintf(&result, "\nMessage: %s", state.Message)
	}

	return result.String()
}

// formatGrid renders rows with a column ruler and row numbers
func formatGrid(rows []string) string {
	if len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("   ")
	for x := range []rune(rows[0]) {
		b.WriteString(strconv.Itoa(x % 10))
	}
	b.WriteString("\n")
	for y, row := range rows {
		fmt.Fprintf(&b, "%2d %s\n", y, row)
	}
	return b.String()
}

// formatLegalMoves lists each vehicle's displacements, one vehicle per line
func formatLegalMoves(moves map[string][]int) string {
	ids := make([]string, 0, len(moves))
	for id := range moves {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		if len(moves[id]) == 0 {
			fmt.Fprintf(&b, "  %s: -\n", id)
			continue
		}
		parts := make([]string, len(moves[id]))
		for i, d := range moves[id] {
			parts[i] = fmt.Sprintf("%+d", d)
		}
		fmt.Fprintf(&b, "  %s: %s\n", id, strings.Join(parts, " "))
	}
	return b.String()
}

func formatOffending(cell *service.CellInfo) string {
	if cell == nil {
		return ""
	}
	if cell.Vehicle != "" {
		return fmt.Sprintf("Offending cell: (%d,%d) %s %s\n", cell.X, cell.Y, cell.Kind, cell.Vehicle)
	}
	return fmt.Sprintf("Offending cell: (%d,%d) %s\n", cell.X, cell.Y, cell.Kind)
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Move successful\n")
	} else {
		fmt.Fprintf(&b, "✗ Move failed (%s)\n", result.Error)
	}

	if result.Step != nil {
		s := result.Step
		fmt.Fprintf(&b, "Step: %s%+d (%d,%d)→(%d,%d)\n", s.Vehicle, s.Displacement, s.From.X, s.From.Y, s.To.X, s.To.Y)
	}
	b.WriteString(formatOffending(result.Offending))

	if len(result.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range result.Events {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	b.WriteString("\n" + formatGameState(result.GameState))
	return b.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder

	configName := ""
	width, height := 0, 0
	if result.GameState != nil {
		configName = result.GameState.ConfigName
		width, height = result.GameState.Width, result.GameState.Height
	}
	fmt.Fprintf(&b, "Session: %s • Config: %s • Grid: %dx%d\n", sessionID, configName, width, height)

	fmt.Fprintf(&b, "Executed %d/%d moves\n", result.MovesExecuted, result.RequestedMoves)
	if result.Truncated {
		fmt.Fprintf(&b, "Truncated to the first %d moves\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped: %s [%s]\n", result.StoppedReason, result.StopReasonCode)
	}
	b.WriteString(formatOffending(result.Offending))

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps (this call):\n")
		for _, s := range result.Steps {
			fmt.Fprintf(&b, "%d. %s%+d (%d,%d)→(%d,%d) ✓\n", s.Idx, s.Vehicle, s.Displacement, s.From.X, s.From.Y, s.To.X, s.To.Y)
		}
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d, Total: %d):\n\n", history.Page, history.TotalPages, history.TotalMoves)
	for _, move := range history.Moves {
		status := "✓"
		if !move.Success {
			status = "✗ " + move.Error
		}
		fmt.Fprintf(&b, "#%d: %s%+d (%d,%d)→(%d,%d) %s\n",
			move.MoveNumber, move.Vehicle, move.Displacement,
			move.From.X, move.From.Y, move.To.X, move.To.Y, status)
	}
	if history.HasNext {
		b.WriteString("\nMore moves on the next page.")
	}
	return b.String()
}
