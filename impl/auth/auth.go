package auth

import (
	"fmt"
	"gigacode/entity"
	"strings"
)

// Auth answers two questions: is a chat user on the allow-list, and which
// admin API user owns a bearer token. Both lists come from configuration.
type Auth struct {
	allowed map[string]struct{}
	tokens  map[string]struct{}
}

func New(allowList, apiTokens []string) *Auth {
	a := &Auth{
		allowed: make(map[string]struct{}, len(allowList)),
		tokens:  make(map[string]struct{}, len(apiTokens)),
	}
	for _, id := range allowList {
		if id = strings.TrimSpace(id); id != "" {
			a.allowed[id] = struct{}{}
		}
	}
	for _, token := range apiTokens {
		if token = strings.TrimSpace(token); token != "" {
			a.tokens[token] = struct{}{}
		}
	}
	return a
}

func (a *Auth) IsKnownUser(userId string) bool {
	if userId == "" {
		return false
	}
	_, ok := a.allowed[userId]
	return ok
}

func (a *Auth) UserByToken(token string) (*entity.User, error) {
	if _, ok := a.tokens[token]; !ok || token == "" {
		return nil, fmt.Errorf("unknown token")
	}
	name := token
	if len(name) > 5 {
		name = name[:5]
	}
	return &entity.User{Username: "api:" + name, Token: token}, nil
}
