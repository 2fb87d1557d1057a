package rest

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/paracordchat/paracord/internal/apierrors"
	"github.com/paracordchat/paracord/internal/appstate"
	"github.com/paracordchat/paracord/internal/models"
	"github.com/paracordchat/paracord/internal/permissions"
)

// jsonAPI is the same jsoniter.ConfigCompatibleWithStandardLibrary drop-in
// internal/gateway's frame codec uses, reused here for REST request/
// response bodies instead of encoding/json directly.
var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// CreateMessageRequest is the body of a channel message-send request.
type CreateMessageRequest struct {
	Content string `json:"content"`
}

// CreateMessageHandler computes the caller's effective channel permissions,
// rejects with 403 if SendMessages is missing, persists the message, and
// publishes MESSAGE_CREATE to the event bus -- the minimal slice of the
// REST surface needed to exercise internal/permissions and internal/
// eventbus end to end behind a real transport.
func CreateMessageHandler(state *appstate.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, ok := UserIDFromContext(ctx)
		if !ok {
			writeAPIError(w, apierrors.New(apierrors.KindInvalidCredentials, "not authenticated"))
			return
		}

		channelID := models.Snowflake(0)
		if raw := r.URL.Query().Get("channel_id"); raw != "" {
			var id int64
			if err := jsonAPI.Unmarshal([]byte(raw), &id); err == nil {
				channelID = models.Snowflake(id)
			}
		}

		channel, err := state.Store.GetChannel(ctx, channelID)
		if err != nil {
			writeAPIError(w, apierrors.Wrap(apierrors.KindNotFound, "channel not found", err))
			return
		}
		if channel.GuildID == nil {
			writeAPIError(w, apierrors.New(apierrors.KindValidation, "channel has no guild"))
			return
		}

		perms, err := resolveChannelPermissions(state, *channel.GuildID, channelID, userID)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		if reqErr := permissions.Require(perms, permissions.SendMessages); reqErr != nil {
			writeAPIError(w, apierrors.Wrap(apierrors.KindMissingPermission, "cannot send messages here", reqErr))
			return
		}

		var req CreateMessageRequest
		if err := jsonAPI.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAPIError(w, apierrors.Wrap(apierrors.KindValidation, "malformed request body", err))
			return
		}

		msg := models.Message{
			ID:        models.Snowflake(state.Snowflakes.Generate()),
			ChannelID: channelID,
			GuildID:   channel.GuildID,
			AuthorID:  userID,
			Content:   req.Content,
		}
		created, err := state.Store.CreateMessage(ctx, msg)
		if err != nil {
			writeAPIError(w, apierrors.Wrap(apierrors.KindInternal, "failed to store message", err))
			return
		}

		state.Bus.Publish(models.NewEvent(models.EventMessageCreate, created, channel.GuildID, nil))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = jsonAPI.NewEncoder(w).Encode(created)
	}
}

// resolveChannelPermissions computes userID's effective permissions in
// channelID, following the same owner -> @everyone -> member-roles ->
// administrator -> overwrites pipeline internal/permissions implements,
// gathering the inputs that pipeline needs from the store.
func resolveChannelPermissions(state *appstate.State, guildID, channelID, userID models.Snowflake) (permissions.Permissions, error) {
	ctx := state.Context()

	guild, err := state.Store.GetGuild(ctx, guildID)
	if err != nil {
		return 0, apierrors.Wrap(apierrors.KindNotFound, "guild not found", err)
	}

	member, err := state.Store.GetMember(ctx, guildID, userID)
	if err != nil {
		return 0, apierrors.Wrap(apierrors.KindMissingPermission, "not a guild member", err)
	}

	roles, err := state.Store.RolesByGuild(ctx, guildID)
	if err != nil {
		return 0, apierrors.Wrap(apierrors.KindInternal, "failed to load roles", err)
	}
	roleLikes := permissions.FromModelRoles(toRolePointers(roles))

	guildPerms := permissions.ComputeGuildPerms(roleLikes, guildID, guild.OwnerID, userID, member.Roles)

	overwrites, err := state.Store.OverwritesByChannel(ctx, channelID)
	if err != nil {
		return 0, apierrors.Wrap(apierrors.KindInternal, "failed to load overwrites", err)
	}

	overwriteLikes := make([]permissions.OverwriteLike, 0, len(overwrites))
	for _, o := range overwrites {
		overwriteLikes = append(overwriteLikes, permissions.OverwriteLike{
			TargetID:   o.TargetID,
			TargetType: o.TargetType,
			Allow:      permissions.Permissions(o.Allow),
			Deny:       permissions.Permissions(o.Deny),
		})
	}

	return permissions.ComputeChannelPerms(guildPerms, guildID, overwriteLikes, member.Roles, userID), nil
}

func toRolePointers(roles []models.Role) []*models.Role {
	out := make([]*models.Role, len(roles))
	for i := range roles {
		out[i] = &roles[i]
	}
	return out
}

func writeAPIError(w http.ResponseWriter, err error) {
	kind := apierrors.KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apierrors.HTTPStatus(kind))
	_ = jsonAPI.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
