// Package odootest provides an in-memory Odoo endpoint implementing
// odoo.Caller, for tests that need real search/create/write/unlink behaviour.
package odootest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"partnersync/internal/odoo"
)

// Call is one recorded invocation.
type Call struct {
	Service string
	Method  string // "authenticate" or the execute_kw method
	Model   string
	UID     int64
	Args    []any
}

type country struct {
	code string
	name string
}

// Server is a fake Odoo instance holding partners in memory.
type Server struct {
	Database string
	Username string
	Password string

	mu        sync.Mutex
	calls     []Call
	partners  map[int64]map[string]any
	countries map[int64]country
	nextID    int64
	nextUID   int64
	validUIDs map[int64]bool
	failures  map[string][]error
}

func New(database, username, password string) *Server {
	return &Server{
		Database:  database,
		Username:  username,
		Password:  password,
		partners:  map[int64]map[string]any{},
		countries: map[int64]country{},
		nextID:    100,
		nextUID:   1,
		validUIDs: map[int64]bool{},
		failures:  map[string][]error{},
	}
}

// Credentials returns the credentials the server accepts.
func (s *Server) Credentials() odoo.Credentials {
	return odoo.Credentials{Database: s.Database, Username: s.Username, Password: s.Password}
}

// ExpireSessions makes every uid handed out so far stale.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validUIDs = map[int64]bool{}
}

// FailNext queues err for the next call of method ("authenticate", "create", ...).
func (s *Server) FailNext(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = append(s.failures[method], err)
}

// AddCountry registers a res.country row.
func (s *Server) AddCountry(id int64, code, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countries[id] = country{code: code, name: name}
}

// Seed inserts a partner directly and returns its id.
func (s *Server) Seed(values map[string]any) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(values)
}

// Partner returns a copy of the stored record, or nil.
func (s *Server) Partner(id int64) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partners[id]
	if !ok {
		return nil
	}
	return copyMap(p)
}

// PartnerIDs lists stored ids in ascending order.
func (s *Server) PartnerIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.partners))
	for id := range s.partners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Calls returns a copy of every recorded call.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Count returns how many calls of method were made.
func (s *Server) Count(method string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (s *Server) Call(_ context.Context, service, method string, args []any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch service {
	case odoo.ServiceCommon:
		s.calls = append(s.calls, Call{Service: service, Method: method, Args: args})
		if err := s.popFailure(method); err != nil {
			return nil, err
		}
		if method != "authenticate" || len(args) < 3 {
			return nil, &odoo.Fault{Code: odoo.FaultApplication, String: "unsupported common call " + method}
		}
		if args[0] != s.Database || args[1] != s.Username || args[2] != s.Password {
			return false, nil
		}
		uid := s.nextUID
		s.nextUID++
		s.validUIDs[uid] = true
		return uid, nil

	case odoo.ServiceObject:
		if method != "execute_kw" || len(args) != 7 {
			return nil, &odoo.Fault{Code: odoo.FaultApplication, String: "unsupported object call " + method}
		}
		uid, _ := args[1].(int64)
		model, _ := args[3].(string)
		op, _ := args[4].(string)
		opArgs, _ := args[5].([]any)
		s.calls = append(s.calls, Call{Service: service, Method: op, Model: model, UID: uid, Args: opArgs})

		if err := s.popFailure(op); err != nil {
			return nil, err
		}
		if args[0] != s.Database || args[2] != s.Password || !s.validUIDs[uid] {
			return nil, &odoo.Fault{Code: odoo.FaultAccessDenied, String: "Access Denied"}
		}
		return s.execute(model, op, opArgs)
	}
	return nil, fmt.Errorf("odootest: unknown service %q", service)
}

func (s *Server) popFailure(method string) error {
	queue := s.failures[method]
	if len(queue) == 0 {
		return nil
	}
	s.failures[method] = queue[1:]
	return queue[0]
}

func (s *Server) execute(model, op string, args []any) (any, error) {
	if model == "res.country" {
		if op != "search" || len(args) != 1 {
			return nil, &odoo.Fault{Code: odoo.FaultApplication, String: "unsupported res.country call"}
		}
		field, operator, value, err := condition(args[0])
		if err != nil {
			return nil, err
		}
		ids := []any{}
		for id, c := range s.countries {
			switch {
			case field == "code" && operator == "=" && c.code == value:
				ids = append(ids, id)
			case field == "name" && operator == "=ilike" && strings.EqualFold(c.name, fmt.Sprint(value)):
				ids = append(ids, id)
			}
		}
		return ids, nil
	}

	switch op {
	case "search":
		if len(args) != 1 {
			return nil, badArgs(op)
		}
		field, _, value, err := condition(args[0])
		if err != nil {
			return nil, err
		}
		ids := []any{}
		for _, id := range s.sortedIDs() {
			if s.partners[id][field] == value {
				ids = append(ids, id)
			}
		}
		return ids, nil

	case "create":
		if len(args) != 1 {
			return nil, badArgs(op)
		}
		values, ok := args[0].(map[string]any)
		if !ok {
			return nil, badArgs(op)
		}
		return s.insert(values), nil

	case "write":
		if len(args) != 2 {
			return nil, badArgs(op)
		}
		ids, ok := args[0].([]int64)
		values, ok2 := args[1].(map[string]any)
		if !ok || !ok2 {
			return nil, badArgs(op)
		}
		for _, id := range ids {
			p, exists := s.partners[id]
			if !exists {
				return nil, &odoo.Fault{Code: odoo.FaultApplication, String: fmt.Sprintf("Record does not exist: %d", id)}
			}
			for k, v := range values {
				p[k] = v
			}
		}
		return true, nil

	case "unlink":
		if len(args) != 1 {
			return nil, badArgs(op)
		}
		ids, ok := args[0].([]int64)
		if !ok {
			return nil, badArgs(op)
		}
		for _, id := range ids {
			delete(s.partners, id)
		}
		return true, nil

	case "read":
		if len(args) != 2 {
			return nil, badArgs(op)
		}
		ids, ok := args[0].([]int64)
		fields, ok2 := args[1].([]any)
		if !ok || !ok2 {
			return nil, badArgs(op)
		}
		rows := []any{}
		for _, id := range ids {
			p, exists := s.partners[id]
			if !exists {
				continue
			}
			row := map[string]any{"id": id}
			for _, f := range fields {
				name := fmt.Sprint(f)
				row[name] = s.readValue(name, p[name])
			}
			rows = append(rows, row)
		}
		return rows, nil
	}
	return nil, &odoo.Fault{Code: odoo.FaultApplication, String: "unsupported method " + op}
}

// readValue mimics Odoo's read encoding: empty chars are false, many2one is [id, name].
func (s *Server) readValue(field string, v any) any {
	if field == "country_id" {
		id, ok := v.(int64)
		if !ok || id == 0 {
			return false
		}
		return []any{id, s.countries[id].name}
	}
	if str, ok := v.(string); ok && str != "" {
		return str
	}
	if v == nil || v == "" {
		return false
	}
	return v
}

func (s *Server) insert(values map[string]any) int64 {
	id := s.nextID
	s.nextID++
	s.partners[id] = copyMap(values)
	return id
}

func (s *Server) sortedIDs() []int64 {
	ids := make([]int64, 0, len(s.partners))
	for id := range s.partners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func condition(domain any) (string, string, any, error) {
	list, ok := domain.([]any)
	if !ok || len(list) != 1 {
		return "", "", nil, &odoo.Fault{Code: odoo.FaultApplication, String: "odootest: expected a single-condition domain"}
	}
	cond, ok := list[0].([]any)
	if !ok || len(cond) != 3 {
		return "", "", nil, &odoo.Fault{Code: odoo.FaultApplication, String: "odootest: malformed condition"}
	}
	return fmt.Sprint(cond[0]), fmt.Sprint(cond[1]), cond[2], nil
}

func badArgs(op string) error {
	return &odoo.Fault{Code: odoo.FaultApplication, String: "odootest: bad arguments for " + op}
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
