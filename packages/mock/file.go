package mock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"
)

// RouteFile is the YAML layout accepted by LoadFile:
//
//	routes:
//	  - method: GET
//	    path: /users/{{id}}
//	    status: 200
//	    json: {id: "{{id}}"}
type RouteFile struct {
	Routes []RouteSpec `yaml:"routes"`
}

// RouteSpec describes one route. JSON, when set, is encoded as the body and
// takes precedence over Body.
type RouteSpec struct {
	Method      string            `yaml:"method"`
	Path        string            `yaml:"path"`
	Status      int               `yaml:"status"`
	ContentType string            `yaml:"contentType"`
	Headers     map[string]string `yaml:"headers"`
	Body        string            `yaml:"body"`
	JSON        any               `yaml:"json"`
}

// LoadFile registers every route in a YAML route file
func (s *Server) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file RouteFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	for i, route := range file.Routes {
		reply, err := route.reply()
		if err != nil {
			return fmt.Errorf("%s: route %d: %w", path, i+1, err)
		}
		method := route.Method
		if method == "" {
			method = http.MethodGet
		}
		s.Reply(method, route.Path, reply)
	}
	return nil
}

func (r RouteSpec) reply() (*Reply, error) {
	if r.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	reply := &Reply{
		StatusCode:  r.Status,
		ContentType: r.ContentType,
		Headers:     r.Headers,
		Body:        r.Body,
	}
	if r.JSON != nil {
		data, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, fmt.Errorf("encoding json body: %w", err)
		}
		reply.Body = string(data)
		if reply.ContentType == "" {
			reply.ContentType = "application/json"
		}
	}
	return reply, nil
}
