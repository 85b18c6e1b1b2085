// Package rbac gates API routes by the role attached to the caller's API
// key. Roles belong to collaborator services and admin tooling, not end
// users.
package rbac

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

type Permission string

const (
	PermCrisisScan    Permission = "crisis.scan"
	PermCrisisRespond Permission = "crisis.respond"
	PermCrisisRead    Permission = "crisis.read"
	PermCrisisManage  Permission = "crisis.manage"
	PermRiskAssess    Permission = "risk.assess"
	PermRiskRead      Permission = "risk.read"
)

const (
	RoleService = "service"
	RoleAdmin   = "admin"
)

const modelText = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj
`

type Policy struct {
	enforcer *casbin.Enforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	rules := [][]string{
		{RoleService, string(PermCrisisScan)},
		{RoleService, string(PermCrisisRespond)},
		{RoleService, string(PermRiskAssess)},
		{RoleAdmin, string(PermCrisisRead)},
		{RoleAdmin, string(PermCrisisManage)},
		{RoleAdmin, string(PermRiskRead)},
	}
	for _, rule := range rules {
		if _, err := e.AddPolicy(rule[0], rule[1]); err != nil {
			return nil, err
		}
	}
	// Admin inherits everything a service may do.
	if _, err := e.AddGroupingPolicy(RoleAdmin, RoleService); err != nil {
		return nil, err
	}
	return &Policy{enforcer: e}, nil
}

func (p *Policy) Allowed(role string, perm Permission) bool {
	if p == nil || p.enforcer == nil {
		return false
	}
	ok, err := p.enforcer.Enforce(role, string(perm))
	return err == nil && ok
}
