package tools

import (
	"context"
	"errors"
	"testing"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if reg.Count() != 0 {
		t.Errorf("new registry should be empty, got %d tools", reg.Count())
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	tool := &Tool{
		Name:        "test_tool",
		Description: "A test tool",
		Category:    CategoryGeneral,
		Execute: func(ctx context.Context, args map[string]any) (Result, error) {
			return Ok("success"), nil
		},
		Schema: ToolSchema{
			Required: []string{},
		},
	}

	if err := reg.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got := reg.Get("test_tool")
	if got == nil {
		t.Fatal("Get returned nil for registered tool")
	}
	if got.Name != "test_tool" {
		t.Errorf("got name %q, want %q", got.Name, "test_tool")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()

	tool := &Tool{
		Name:     "dupe",
		Category: CategoryGeneral,
		Execute: func(ctx context.Context, args map[string]any) (Result, error) {
			return Ok(""), nil
		},
	}

	if err := reg.Register(tool); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	err := reg.Register(tool)
	if err == nil {
		t.Fatal("expected error for duplicate registration")
	}
	if !errors.Is(err, ErrToolAlreadyRegistered) {
		t.Errorf("expected ErrToolAlreadyRegistered, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name    string
		tool    *Tool
		wantErr error
	}{
		{
			name:    "empty name",
			tool:    &Tool{Name: "", Execute: func(ctx context.Context, args map[string]any) (Result, error) { return Ok(""), nil }},
			wantErr: ErrToolNameEmpty,
		},
		{
			name:    "nil execute",
			tool:    &Tool{Name: "test", Execute: nil},
			wantErr: ErrToolExecuteNil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Register(tt.tool)
			if err == nil {
				t.Errorf("expected error %v, got nil", tt.wantErr)
			}
		})
	}
}

func TestGetByCategory(t *testing.T) {
	reg := NewRegistry()

	tools := []*Tool{
		{Name: "write_file", Category: CategoryFiles, Priority: 80, Execute: func(ctx context.Context, args map[string]any) (Result, error) { return Ok(""), nil }},
		{Name: "read_file", Category: CategoryFiles, Priority: 60, Execute: func(ctx context.Context, args map[string]any) (Result, error) { return Ok(""), nil }},
		{Name: "api_test", Category: CategoryTest, Priority: 50, Execute: func(ctx context.Context, args map[string]any) (Result, error) { return Ok(""), nil }},
	}

	for _, tool := range tools {
		reg.MustRegister(tool)
	}

	files := reg.GetByCategory(CategoryFiles)
	if len(files) != 2 {
		t.Errorf("expected 2 file tools, got %d", len(files))
	}

	// Should be sorted by priority (highest first)
	if files[0].Name != "write_file" {
		t.Errorf("expected write_file first (priority 80), got %s", files[0].Name)
	}
}

func TestExecute(t *testing.T) {
	reg := NewRegistry()

	tool := &Tool{
		Name:     "echo",
		Category: CategoryGeneral,
		Execute: func(ctx context.Context, args map[string]any) (Result, error) {
			msg, _ := args["message"].(string)
			return Ok("Echo: %s", msg), nil
		},
		Schema: ToolSchema{
			Required:   []string{"message"},
			Properties: map[string]Property{"message": {Type: "string"}},
		},
	}

	reg.MustRegister(tool)

	// Test successful execution
	inv, err := reg.Execute(context.Background(), "echo", map[string]any{"message": "hello"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if inv.Result.Message != "Echo: hello" {
		t.Errorf("got result %q, want %q", inv.Result.Message, "Echo: hello")
	}
	if !inv.IsSuccess() {
		t.Error("expected IsSuccess to be true")
	}
	if inv.Result.IsErr() {
		t.Error("expected ok result")
	}

	// Test missing required arg
	inv, err = reg.Execute(context.Background(), "echo", map[string]any{})
	if err == nil {
		t.Error("expected error for missing required arg")
	}
	if !errors.Is(err, ErrMissingRequiredArg) {
		t.Errorf("expected ErrMissingRequiredArg, got %v", err)
	}
	if inv.Result.Kind != KindInvalidArgument {
		t.Errorf("expected invalid_argument kind, got %q", inv.Result.Kind)
	}

	// Test wrong argument type
	_, err = reg.Execute(context.Background(), "echo", map[string]any{"message": 42})
	if !errors.Is(err, ErrInvalidArgType) {
		t.Errorf("expected ErrInvalidArgType, got %v", err)
	}

	// Test tool not found
	_, err = reg.Execute(context.Background(), "nonexistent", map[string]any{})
	if err == nil {
		t.Error("expected error for nonexistent tool")
	}
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

func TestExecuteToolDomainError(t *testing.T) {
	reg := NewRegistry()

	tool := &Tool{
		Name:     "always_missing",
		Category: CategoryFiles,
		Execute: func(ctx context.Context, args map[string]any) (Result, error) {
			return Errf(KindNotFound, "file not found: ghost.py"), nil
		},
	}
	reg.MustRegister(tool)

	inv, err := reg.Execute(context.Background(), "always_missing", map[string]any{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	// Domain errors are successful invocations
	if !inv.IsSuccess() {
		t.Error("expected IsSuccess for domain error")
	}
	if !inv.Result.IsErr() {
		t.Error("expected error result")
	}
	if inv.Result.Kind != KindNotFound {
		t.Errorf("expected not_found kind, got %q", inv.Result.Kind)
	}
	if inv.Result.String() != "Error: file not found: ghost.py" {
		t.Errorf("unexpected rendering: %q", inv.Result.String())
	}
}

func TestValidateArgTypes(t *testing.T) {
	reg := NewRegistry()

	tool := &Tool{
		Name:     "typed",
		Category: CategoryGeneral,
		Execute: func(ctx context.Context, args map[string]any) (Result, error) {
			return Ok("ok"), nil
		},
		Schema: ToolSchema{
			Properties: map[string]Property{
				"name":    {Type: "string"},
				"count":   {Type: "number"},
				"enabled": {Type: "boolean"},
				"body":    {Type: "object"},
				"items":   {Type: "array"},
			},
		},
	}
	reg.MustRegister(tool)

	valid := map[string]any{
		"name":    "x",
		"count":   float64(3),
		"enabled": true,
		"body":    map[string]any{"k": "v"},
		"items":   []any{"a"},
	}
	if _, err := reg.Execute(context.Background(), "typed", valid); err != nil {
		t.Errorf("valid args rejected: %v", err)
	}

	for arg, bad := range map[string]any{
		"name":    1,
		"count":   "three",
		"enabled": "yes",
		"body":    "{}",
		"items":   "a,b",
	} {
		_, err := reg.Execute(context.Background(), "typed", map[string]any{arg: bad})
		if !errors.Is(err, ErrInvalidArgType) {
			t.Errorf("arg %s with value %v: expected ErrInvalidArgType, got %v", arg, bad, err)
		}
	}
}

func TestGlobalRegistry(t *testing.T) {
	// Reset global registry for test
	globalRegistry = NewRegistry()

	tool := &Tool{
		Name:     "global_test",
		Category: CategoryGeneral,
		Execute: func(ctx context.Context, args map[string]any) (Result, error) {
			return Ok("global"), nil
		},
	}

	if err := Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got := Get("global_test")
	if got == nil {
		t.Fatal("Get returned nil for globally registered tool")
	}

	inv, err := Execute(context.Background(), "global_test", map[string]any{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if inv.Result.Message != "global" {
		t.Errorf("got result %q, want %q", inv.Result.Message, "global")
	}
}
