package command

import (
	"fmt"
	"net/url"
	"strings"
)

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service:      "problem",
			Action:       "get",
			Method:       "GET",
			PathTemplate: "/api/v1/problems/:id",
			Fields: []Field{
				{Name: "id", Prompt: "problem_id", Type: FieldInt64, Required: true},
			},
		},
		{
			Service:      "problem",
			Action:       "daily",
			Method:       "GET",
			PathTemplate: "/api/v1/problems/daily",
		},
		{
			Service:      "problem",
			Action:       "random",
			Method:       "GET",
			PathTemplate: "/api/v1/problems/random",
			Fields: []Field{
				{Name: "difficulty", Aliases: []string{"diff"}, Prompt: "difficulty", Type: FieldString, InQuery: true},
				{Name: "premium", Prompt: "premium", Type: FieldBool, InQuery: true},
			},
		},
		{
			Service:      "catalog",
			Action:       "refresh",
			Method:       "POST",
			PathTemplate: "/api/v1/refresh",
		},
		{
			Service:      "health",
			Action:       "check",
			Method:       "GET",
			PathTemplate: "/healthz",
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		key := fmt.Sprintf("%s %s", cmd.Service, cmd.Action)
		result[key] = cmd
	}
	return result
}

// BuildRequest creates HTTP request spec based on command.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	params.Canonicalize(cmd.Fields)
	path, err := buildPath(cmd.PathTemplate, params)
	if err != nil {
		return RequestSpec{}, err
	}

	query := url.Values{}
	for _, field := range cmd.Fields {
		if !field.InQuery {
			continue
		}
		value := params.Get(field.Name)
		if value == "" {
			continue
		}
		if field.Type == FieldInt64 {
			if _, err := ParseInt64(value); err != nil {
				return RequestSpec{}, fmt.Errorf("invalid %s: %w", field.Name, err)
			}
		}
		query.Set(field.Name, value)
	}
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	return RequestSpec{
		Method:  cmd.Method,
		Path:    path,
		Headers: map[string]string{},
	}, nil
}

func buildPath(template string, params Params) (string, error) {
	path := template
	for _, key := range []string{"id"} {
		placeholder := ":" + key
		if strings.Contains(path, placeholder) {
			value := params.Get(key)
			if value == "" {
				return "", fmt.Errorf("missing path parameter: %s", key)
			}
			if _, err := ParseInt64(value); err != nil {
				return "", fmt.Errorf("invalid path parameter %s: %w", key, err)
			}
			path = strings.ReplaceAll(path, placeholder, value)
		}
	}
	return path, nil
}
