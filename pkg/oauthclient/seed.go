package oauthclient

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tendant/simple-oxtrust/pkg/config"
)

// LoadClientsFromEnv reads the clients declared in the environment:
//
//	OXTRUST_CLIENTS=portal,cli
//	OXTRUST_CLIENT_PORTAL_INUM=@!1111!0008!portal
//	OXTRUST_CLIENT_PORTAL_SECRET=...
//	OXTRUST_CLIENT_PORTAL_NAME=Portal
//	OXTRUST_CLIENT_PORTAL_REDIRECT_URIS=https://portal.example.com/callback
//	OXTRUST_CLIENT_PORTAL_SCOPES=inum=...,ou=scopes,o=...;inum=...
//	OXTRUST_CLIENT_PORTAL_GRANT_TYPES=authorization_code,refresh_token
//	OXTRUST_CLIENT_PORTAL_RESPONSE_TYPES=code
//	OXTRUST_CLIENT_PORTAL_AUTH_METHOD=client_secret_basic
//
// Scope DNs contain commas, so SCOPES is separated by semicolons.
func LoadClientsFromEnv() ([]*OAuthClient, error) {
	var clients []*OAuthClient

	for _, name := range config.GetEnvSlice("OXTRUST_CLIENTS", nil) {
		prefix := fmt.Sprintf("OXTRUST_CLIENT_%s_", strings.ToUpper(name))

		client := NewOAuthClient()
		client.Inum = config.GetEnv(prefix + "INUM")
		client.ClientSecret = config.GetEnv(prefix + "SECRET")
		client.DisplayName = config.GetEnvOrDefault(prefix+"NAME", name)
		client.Description = "Declared in environment"
		client.RedirectURIs = config.GetEnvSlice(prefix+"REDIRECT_URIS", nil)
		client.Scopes = config.SplitAndTrim(config.GetEnv(prefix+"SCOPES"), ";")
		client.TokenEndpointAuthMethod = AuthenticationMethod(config.GetEnvOrDefault(prefix+"AUTH_METHOD", string(AuthMethodClientSecretBasic)))

		for _, gt := range config.GetEnvSlice(prefix+"GRANT_TYPES", []string{string(GrantTypeAuthorizationCode)}) {
			client.GrantTypes = append(client.GrantTypes, GrantType(gt))
		}
		for _, rt := range config.GetEnvSlice(prefix+"RESPONSE_TYPES", []string{string(ResponseTypeCode)}) {
			client.ResponseTypes = append(client.ResponseTypes, ResponseType(rt))
		}

		if client.Inum == "" {
			return nil, fmt.Errorf("client %s missing required field: INUM (set %sINUM)", name, prefix)
		}
		if client.ClientSecret == "" {
			return nil, fmt.Errorf("client %s missing required field: SECRET (set %sSECRET)", name, prefix)
		}
		if err := client.Validate(); err != nil {
			return nil, fmt.Errorf("client %s: %w", name, err)
		}

		clients = append(clients, client)
	}

	return clients, nil
}

// SeedClients adds the clients whose inum is not yet stored and returns
// how many were added. Existing entries are left as they are.
func (s *ClientService) SeedClients(ctx context.Context, clients []*OAuthClient) (int, error) {
	added := 0
	for _, client := range clients {
		exists, err := s.store.Contains(ctx, s.DNForClient(client.Inum))
		if err != nil {
			return added, fmt.Errorf("failed to check client %s: %w", client.Inum, err)
		}
		if exists {
			slog.Debug("Seed client already present", "inum", client.Inum)
			continue
		}
		if err := s.AddClient(ctx, client); err != nil {
			return added, fmt.Errorf("failed to seed client %s: %w", client.Inum, err)
		}
		slog.Info("Seeded client", "inum", client.Inum, "displayName", client.DisplayName)
		added++
	}
	return added, nil
}
