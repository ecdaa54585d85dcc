// Package oauthclient manages OAuth clients registered with the
// authorization server.
//
// Clients are stored as entries below ou=clients of the organization, with
// the directory attribute names (oxAuthRedirectURI, oxAuthScope, ...) as
// document keys. Boolean flags use persistence.TriState so that an unset
// flag is not written back as false.
//
// Client secrets are encoded with a SecretCodec before they are stored. The
// plaintext is never persisted:
//
//	codec, err := oauthclient.NewEncryptionService(cfg.Client.EncryptionKey)
//	if err != nil {
//		return err
//	}
//	clients := oauthclient.NewClientService(store, orgService, codec)
//
//	client := oauthclient.NewOAuthClient()
//	client.DisplayName = "Portal"
//	client.RedirectURIs = []string{"https://portal.example.com/callback"}
//	client.ResponseTypes = []oauthclient.ResponseType{oauthclient.ResponseTypeCode}
//	client.GrantTypes = []oauthclient.GrantType{oauthclient.GrantTypeAuthorizationCode}
//	client.ClientSecret, _ = clients.GenerateClientSecret()
//	err = clients.AddClient(ctx, client)
//
// Get* and Search* methods report a store failure as a miss or an empty
// list and log it. Use LookupClientByInum when the caller needs to tell the
// two apart.
package oauthclient
