// Command nsinspect exposes a naming server's read-only Service operations
// as MCP tools, grounded on the teacher repo's cmd/mcp/main.go: a single
// stdio MCP server backed by one naming-server Service address, each tool
// handler doing one RPC and rendering the result or error as tool output.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/meridianfs/namefs/internal/fs_path"
	"github.com/meridianfs/namefs/internal/rmi"
	"github.com/meridianfs/namefs/internal/storage_iface"
)

func main() {
	addr := "127.0.0.1:7050"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}
	service := rmi.StubFromAddress("Service", addr)

	s := server.NewMCPServer(
		"namefs-inspector",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	addTools(s, service)

	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("Server error: %v\n", err)
	}
}

func addTools(s *server.MCPServer, service rmi.StubHandle) {
	isDirTool := mcp.NewTool("is_directory",
		mcp.WithDescription("Report whether a path in the naming server's tree is a directory"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path, e.g. /a/b")),
	)
	s.AddTool(isDirTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handlePathCall(request, service, "IsDirectory", func(isDir bool) string {
			return fmt.Sprintf("%v", isDir)
		})
	})

	listTool := mcp.NewTool("list_directory",
		mcp.WithDescription("List the immediate contents of a directory"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute directory path, e.g. /a/b")),
	)
	s.AddTool(listTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		p, err := fs_path.New(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		entries, err := rmi.Call[[]string](service, "List", p)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(entries) == 0 {
			return mcp.NewToolResultText("(empty)"), nil
		}
		result := ""
		for _, e := range entries {
			result += e + "\n"
		}
		return mcp.NewToolResultText(result), nil
	})

	storageTool := mcp.NewTool("get_storage",
		mcp.WithDescription("Report the storage server stub address backing a file"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute file path, e.g. /a/b.txt")),
	)
	s.AddTool(storageTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		p, err := fs_path.New(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		storage, err := rmi.Call[any](service, "GetStorage", p)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if stub, ok := storage.(storage_iface.StorageStub); ok {
			return mcp.NewToolResultText(stub.Handle.String()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%v", storage)), nil
	})
}

func handlePathCall(request mcp.CallToolRequest, service rmi.StubHandle, method string, render func(bool) string) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := fs_path.New(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := rmi.Call[bool](service, method, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(render(result)), nil
}
