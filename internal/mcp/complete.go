package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cdelab/curator/internal/agent"
)

// CompleteObjectInput is the input schema for complete_object.
type CompleteObjectInput struct {
	Collection string   `json:"collection" jsonschema:"Collection supplying the few-shot examples"`
	Query      string   `json:"query" jsonschema:"Partial object as YAML key-value pairs, or a bare label"`
	Fields     []string `json:"fields,omitempty" jsonschema:"Restrict which missing fields to predict"`
}

func (s *Server) registerCompleteTool() error {
	schema, err := jsonschema.For[CompleteObjectInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", ToolCompleteObject, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolCompleteObject,
		Description: "Draft the missing fields of a partial object using similar " +
			"objects from a collection as examples. The query is YAML key-value " +
			"pairs describing the known fields, or a bare label.",
		InputSchema: schema,
	}, s.CompleteObject)
	return nil
}

// CompleteObject handles the complete_object tool call.
func (s *Server) CompleteObject(ctx context.Context, _ *mcp.CallToolRequest, in CompleteObjectInput) (*mcp.CallToolResult, any, error) {
	if in.Collection == "" {
		return errorResult("collection is required"), nil, nil
	}
	if in.Query == "" {
		return errorResult("query is required"), nil, nil
	}

	seed, err := agent.ParseQuery(in.Query, "")
	if err != nil {
		return errorResult("invalid query: %v", err), nil, nil
	}

	completion, err := s.completer.Complete(ctx, seed, agent.CompleteOptions{
		Collection:      in.Collection,
		FieldsToPredict: in.Fields,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("completing object: %w", err)
	}

	result, err := jsonResult(completion.Object)
	if err != nil {
		return nil, nil, err
	}
	return result, nil, nil
}
