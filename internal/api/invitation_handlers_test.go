package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inviteFixture walks the full invitation flow up to a pending invite
// and returns everything later steps need.
type inviteFixture struct {
	ownerID      string
	ownerToken   string
	inviteeID    string
	inviteeToken string
	childID      string
	invitationID string
	code         string
}

func setupInviteFixture(t *testing.T, server *Server) inviteFixture {
	t.Helper()

	f := inviteFixture{}
	f.ownerID, f.ownerToken = registerTestAccount(t, server, "parent@example.com", "Parent")
	f.inviteeID, f.inviteeToken = registerTestAccount(t, server, "grandma@example.com", "Grandma")
	f.childID = createTestChildHTTP(t, server, f.ownerToken, "Mia")

	w := doJSON(t, server, http.MethodPost, "/api/v1/children/"+f.childID+"/invitations", f.ownerToken, map[string]string{
		"invited_email": "grandma@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := dataMap(t, decodeEnvelope(t, w))
	f.invitationID, _ = data["id"].(string)
	f.code, _ = data["code"].(string)
	require.NotEmpty(t, f.invitationID)
	require.NotEmpty(t, f.code)
	return f
}

func TestCreateInvitation_HTTP(t *testing.T) {
	server := setupTestServer(t)
	f := setupInviteFixture(t, server)

	w := doJSON(t, server, http.MethodGet, "/api/v1/children/"+f.childID+"/invitations", f.ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	invitations, ok := env.Data.([]any)
	require.True(t, ok)
	require.Len(t, invitations, 1)

	inv, ok := invitations[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pending", inv["status"])
	assert.Equal(t, "Mia", inv["child_name"])
	assert.Equal(t, "Parent", inv["inviter_name"])
	assert.Equal(t, "grandma@example.com", inv["invited_email"])
	assert.Len(t, f.code, 6)
	assert.Equal(t, "sproutling://accept-invite?code="+f.code, inv["deep_link"])
	assert.Equal(t, "https://sproutling.app/accept-invite?code="+f.code, inv["universal_link"])
}

func TestCreateInvitation_RequiresOwner(t *testing.T) {
	server := setupTestServer(t)
	f := setupInviteFixture(t, server)

	w := doJSON(t, server, http.MethodPost, "/api/v1/children/"+f.childID+"/invitations", f.inviteeToken, map[string]string{
		"invited_email": "stranger@example.com",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestValidateInviteCode_HTTP(t *testing.T) {
	server := setupTestServer(t)
	f := setupInviteFixture(t, server)

	// Public endpoint: no token needed so the accept screen can render
	// before sign-in.
	w := doJSON(t, server, http.MethodGet, "/api/v1/invitations/code/"+f.code, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := dataMap(t, decodeEnvelope(t, w))
	assert.Equal(t, f.invitationID, data["invitation_id"])
	assert.Equal(t, "Mia", data["child_name"])
	assert.Equal(t, "Parent", data["inviter_name"])
	assert.Equal(t, "grandma@example.com", data["invited_email"])
	// The preview carries no code or links: the caller already has the code.
	assert.NotContains(t, data, "code")
}

func TestValidateInviteCode_Unknown(t *testing.T) {
	server := setupTestServer(t)

	w := doJSON(t, server, http.MethodGet, "/api/v1/invitations/code/000000", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAcceptInvitation_HTTP(t *testing.T) {
	server := setupTestServer(t)
	f := setupInviteFixture(t, server)

	w := doJSON(t, server, http.MethodPost, "/api/v1/invitations/"+f.invitationID+"/accept", f.inviteeToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	child := dataMap(t, decodeEnvelope(t, w))
	assert.Equal(t, f.childID, child["id"])

	// The invitee now sees the child in their own list.
	w = doJSON(t, server, http.MethodGet, "/api/v1/children", f.inviteeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	children, ok := decodeEnvelope(t, w).Data.([]any)
	require.True(t, ok)
	assert.Len(t, children, 1)

	// A second accept of a used invitation fails.
	w = doJSON(t, server, http.MethodPost, "/api/v1/invitations/"+f.invitationID+"/accept", f.inviteeToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// The released code no longer resolves.
	w = doJSON(t, server, http.MethodGet, "/api/v1/invitations/code/"+f.code, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeclineInvitation_HTTP(t *testing.T) {
	server := setupTestServer(t)
	f := setupInviteFixture(t, server)

	w := doJSON(t, server, http.MethodPost, "/api/v1/invitations/"+f.invitationID+"/decline", f.inviteeToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// No access was granted.
	w = doJSON(t, server, http.MethodGet, "/api/v1/children/"+f.childID, f.inviteeToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCollaborators_HTTP(t *testing.T) {
	server := setupTestServer(t)
	f := setupInviteFixture(t, server)

	w := doJSON(t, server, http.MethodPost, "/api/v1/invitations/"+f.invitationID+"/accept", f.inviteeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, server, http.MethodGet, "/api/v1/children/"+f.childID+"/collaborators", f.ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	collaborators, ok := decodeEnvelope(t, w).Data.([]any)
	require.True(t, ok)
	require.Len(t, collaborators, 1)

	collab, ok := collaborators[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, f.inviteeID, collab["id"])
	assert.Regexp(t, `^#[0-9A-F]{6}$`, collab["avatar_color"])
	assert.NotContains(t, w.Body.String(), "password_hash")

	// Remove and verify access is revoked.
	w = doJSON(t, server, http.MethodDelete, "/api/v1/children/"+f.childID+"/collaborators/"+f.inviteeID, f.ownerToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, server, http.MethodGet, "/api/v1/children/"+f.childID, f.inviteeToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRemoveCollaborator_OnlyOwnerRemovesOthers_HTTP(t *testing.T) {
	server := setupTestServer(t)
	f := setupInviteFixture(t, server)

	w := doJSON(t, server, http.MethodPost, "/api/v1/invitations/"+f.invitationID+"/accept", f.inviteeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// A collaborator cannot remove the owner.
	w = doJSON(t, server, http.MethodDelete, "/api/v1/children/"+f.childID+"/collaborators/"+f.ownerID, f.inviteeToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Self-removal is allowed.
	w = doJSON(t, server, http.MethodDelete, "/api/v1/children/"+f.childID+"/collaborators/"+f.inviteeID, f.inviteeToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
