package auth

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/fieldops/fieldservice/internal/domain"
)

// Permission is a fine-grained capability string.
type Permission string

const (
	PermTicketsView         Permission = "tickets.view"
	PermTicketsViewAll      Permission = "tickets.view_all"
	PermTicketsCreate       Permission = "tickets.create"
	PermTicketsEdit         Permission = "tickets.edit"
	PermTicketsDelete       Permission = "tickets.delete"
	PermTicketsChangeStatus Permission = "tickets.change_status"
	PermTicketsAssign       Permission = "tickets.assign"
	PermTicketsReassign     Permission = "tickets.reassign"
	PermPaymentsView        Permission = "payments.view"
	PermPaymentsProcess     Permission = "payments.process"
	PermReportsView         Permission = "reports.view"
	PermUsersManage         Permission = "users.manage"
	PermConfigManage        Permission = "config.manage"
)

// ElevatedLevel is the hierarchy level required for reverse transitions,
// reassignment, full edits, deletion and payment processing.
const ElevatedLevel = 3

var knownPermissions = map[Permission]struct{}{
	PermTicketsView: {}, PermTicketsViewAll: {}, PermTicketsCreate: {}, PermTicketsEdit: {},
	PermTicketsDelete: {}, PermTicketsChangeStatus: {}, PermTicketsAssign: {}, PermTicketsReassign: {},
	PermPaymentsView: {}, PermPaymentsProcess: {}, PermReportsView: {}, PermUsersManage: {},
	PermConfigManage: {},
}

// RoleDefinition is one row of the role table.
type RoleDefinition struct {
	Role        domain.Role  `yaml:"role"`
	Level       int          `yaml:"level"`
	Permissions []Permission `yaml:"permissions"`
}

type roleEntry struct {
	level       int
	permissions map[Permission]struct{}
}

// Policy is an immutable role table. Build it once at start-up and inject it.
type Policy struct {
	roles map[domain.Role]roleEntry
	order []domain.Role
}

// NewPolicy validates definitions and freezes them into a Policy.
func NewPolicy(defs []RoleDefinition) (*Policy, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("role policy: no roles defined")
	}
	p := &Policy{roles: make(map[domain.Role]roleEntry, len(defs))}
	levels := make(map[int]domain.Role, len(defs))
	for _, def := range defs {
		if def.Role == "" {
			return nil, fmt.Errorf("role policy: empty role name")
		}
		if _, dup := p.roles[def.Role]; dup {
			return nil, fmt.Errorf("role policy: duplicate role %q", def.Role)
		}
		if def.Level <= 0 {
			return nil, fmt.Errorf("role policy: role %q has non-positive level %d", def.Role, def.Level)
		}
		if other, dup := levels[def.Level]; dup {
			return nil, fmt.Errorf("role policy: roles %q and %q share level %d", other, def.Role, def.Level)
		}
		levels[def.Level] = def.Role
		perms := make(map[Permission]struct{}, len(def.Permissions))
		for _, perm := range def.Permissions {
			if _, ok := knownPermissions[perm]; !ok {
				return nil, fmt.Errorf("role policy: role %q has unknown permission %q", def.Role, perm)
			}
			perms[perm] = struct{}{}
		}
		p.roles[def.Role] = roleEntry{level: def.Level, permissions: perms}
		p.order = append(p.order, def.Role)
	}
	sort.Slice(p.order, func(i, j int) bool {
		return p.roles[p.order[i]].level < p.roles[p.order[j]].level
	})
	return p, nil
}

// DefaultPolicy returns the built-in five-role table.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(DefaultRoleDefinitions())
	if err != nil {
		panic(err)
	}
	return p
}

// DefaultRoleDefinitions lists the built-in roles from field technician up to president.
func DefaultRoleDefinitions() []RoleDefinition {
	technician := []Permission{PermTicketsView, PermTicketsChangeStatus, PermPaymentsView}
	coordinator := []Permission{PermTicketsView, PermTicketsViewAll, PermTicketsCreate, PermTicketsAssign}
	manager := []Permission{
		PermTicketsView, PermTicketsViewAll, PermTicketsCreate, PermTicketsEdit, PermTicketsDelete,
		PermTicketsChangeStatus, PermTicketsAssign, PermTicketsReassign,
		PermPaymentsView, PermPaymentsProcess, PermReportsView,
	}
	director := append(append([]Permission{}, manager...), PermUsersManage)
	president := append(append([]Permission{}, director...), PermConfigManage)
	return []RoleDefinition{
		{Role: domain.RoleTechnician, Level: 1, Permissions: technician},
		{Role: domain.RoleCoordinator, Level: 2, Permissions: coordinator},
		{Role: domain.RoleManager, Level: 3, Permissions: manager},
		{Role: domain.RoleDirector, Level: 4, Permissions: director},
		{Role: domain.RolePresident, Level: 5, Permissions: president},
	}
}

type policyFile struct {
	Roles []RoleDefinition `yaml:"roles"`
}

// LoadPolicy reads a YAML role table from path. An empty path yields DefaultPolicy.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read role policy: %w", err)
	}
	return ParsePolicy(raw)
}

// ParsePolicy decodes a YAML role table.
func ParsePolicy(raw []byte) (*Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse role policy: %w", err)
	}
	return NewPolicy(file.Roles)
}

// HasPermission is an exact-match lookup. Unknown roles fail closed.
func (p *Policy) HasPermission(role domain.Role, perm Permission) bool {
	entry, ok := p.roles[role]
	if !ok {
		return false
	}
	_, ok = entry.permissions[perm]
	return ok
}

// HasMinimumLevel reports whether role's level is at least n. Unknown roles fail closed.
func (p *Policy) HasMinimumLevel(role domain.Role, n int) bool {
	entry, ok := p.roles[role]
	if !ok {
		return false
	}
	return entry.level >= n
}

// Level returns the hierarchy level of role.
func (p *Policy) Level(role domain.Role) (int, bool) {
	entry, ok := p.roles[role]
	return entry.level, ok
}

// Known reports whether role is defined.
func (p *Policy) Known(role domain.Role) bool {
	_, ok := p.roles[role]
	return ok
}

// Roles lists roles from lowest to highest level.
func (p *Policy) Roles() []domain.Role {
	return append([]domain.Role(nil), p.order...)
}

// IsElevated reports whether role may use privileged operations.
func (p *Policy) IsElevated(role domain.Role) bool {
	return p.HasMinimumLevel(role, ElevatedLevel)
}

// SeesAllTickets reports whether role bypasses technician self-scope.
func (p *Policy) SeesAllTickets(role domain.Role) bool {
	return p.HasPermission(role, PermTicketsViewAll)
}
