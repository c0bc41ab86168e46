package toolset

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/acuteworks/stripe-mcp/mcp"
)

// defaultPageSize bounds tools/list pages.
const defaultPageSize = 50

// Container owns an immutable-after-startup set of tool descriptors and
// handlers and dispatches tools/list and tools/call against it. It is safe
// for concurrent use.
type Container struct {
	mu       sync.RWMutex
	tools    []mcp.Tool
	handlers map[string]Handler
	pageSize int
}

// NewContainer constructs a Container holding defs. Duplicate names are
// last-write-wins.
func NewContainer(defs ...Tool) *Container {
	c := &Container{pageSize: defaultPageSize, handlers: make(map[string]Handler, len(defs))}
	for _, d := range defs {
		c.tools = append(c.tools, d.Descriptor)
		if d.Handler != nil {
			c.handlers[d.Descriptor.Name] = d.Handler
		}
	}
	return c
}

// SetPageSize overrides the tools/list page size. Non-positive values are
// ignored.
func (c *Container) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	c.pageSize = n
	c.mu.Unlock()
}

// Names returns the registered tool names in registration order.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.tools))
	for i, t := range c.tools {
		names[i] = t.Name
	}
	return names
}

// ListTools returns one page of tool descriptors starting at cursor.
func (c *Container) ListTools(ctx context.Context, cursor string) (*mcp.ListToolsResult, error) {
	c.mu.RLock()
	all := make([]mcp.Tool, len(c.tools))
	copy(all, c.tools)
	pageSize := c.pageSize
	c.mu.RUnlock()

	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 || n > len(all) {
			return nil, fmt.Errorf("invalid cursor %q", cursor)
		}
		start = n
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	res := &mcp.ListToolsResult{Tools: all[start:end]}
	if end < len(all) {
		res.NextCursor = strconv.Itoa(end)
	}
	return res, nil
}

// CallTool dispatches a request to the named tool.
func (c *Container) CallTool(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req == nil || req.Name == "" {
		return nil, fmt.Errorf("invalid tool request: missing name")
	}
	c.mu.RLock()
	h := c.handlers[req.Name]
	c.mu.RUnlock()
	if h == nil {
		return nil, fmt.Errorf("tool not found: %s", req.Name)
	}
	return h(ctx, req)
}
