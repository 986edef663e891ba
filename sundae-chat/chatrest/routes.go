// Package chatrest exposes the chat service over HTTP.
package chatrest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	sundaechat "github.com/SundaeSwap-finance/sundae-chat/sundae-chat"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
	sundaerest "github.com/SundaeSwap-finance/sundae-chat/sundae-rest"
	sundaews "github.com/SundaeSwap-finance/sundae-chat/sundae-ws"
	"github.com/go-chi/chi/v5"
)

// Publisher queues a broadcast for asynchronous delivery. Satisfied by
// *publish.Publisher.
type Publisher interface {
	Send(ctx context.Context, recipientKey string, payload []byte) error
}

// Secret is the shape of the Secrets Manager entry holding the admin key.
type Secret struct {
	APIKey string `json:"api_key"`
}

// API serves the chat REST routes.
type API struct {
	Service *sundaechat.Service

	// Publisher, when set, makes POST /broadcast asynchronous.
	Publisher Publisher

	// APIKey guards POST /broadcast.
	APIKey string
}

// Routes mounts the API on router.
func (a *API) Routes(router chi.Router) chi.Router {
	router.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		sundaerest.WriteJSON(w, req, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/rooms/{roomId}/messages", func(r chi.Router) {
		r.Post("/", a.sendMessage)
		r.Get("/", a.listMessages)
		r.Get("/{ts}", a.getMessage)
		r.Patch("/{ts}", a.editMessage)
		r.Delete("/{ts}", a.deleteMessage)
	})

	router.Route("/users/{userId}/notifications", func(r chi.Router) {
		r.Post("/", a.notify)
		r.Get("/", a.listNotifications)
		r.Patch("/{id}", a.updateNotification)
		r.Delete("/{id}", a.deleteNotification)
	})

	router.With(sundaerest.RequireAPIKey(a.APIKey)).Post("/broadcast", a.broadcast)
	return router
}

func timestampParam(req *http.Request) (int64, error) {
	ts, err := strconv.ParseInt(chi.URLParam(req, "ts"), 10, 64)
	if err != nil {
		return 0, chaterr.Invalid("timestamp", "must be an integer")
	}
	return ts, nil
}

func intQuery(req *http.Request, name string) (int64, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, chaterr.Invalid(name, "must be an integer")
	}
	return v, nil
}

func (a *API) sendMessage(w http.ResponseWriter, req *http.Request) {
	var in sundaechat.SendMessageInput
	if err := sundaerest.DecodeJSON(req, &in); err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	in.RoomID = chi.URLParam(req, "roomId")

	msg, err := a.Service.SendMessage(req.Context(), in)
	if err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	sundaerest.WriteJSON(w, req, http.StatusCreated, msg)
}

func (a *API) listMessages(w http.ResponseWriter, req *http.Request) {
	since, err := intQuery(req, "since")
	if err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	limit, err := intQuery(req, "limit")
	if err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}

	page, err := a.Service.ListMessages(req.Context(), chi.URLParam(req, "roomId"), sundaechat.Page{
		Since:      since,
		Limit:      int(limit),
		Descending: req.URL.Query().Get("order") == "desc",
	})
	if err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	sundaerest.WriteJSON(w, req, http.StatusOK, page)
}

func (a *API) getMessage(w http.ResponseWriter, req *http.Request) {
	ts, err := timestampParam(req)
	if err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	msg, err := a.Service.GetMessage(req.Context(), chi.URLParam(req, "roomId"), ts)
	if err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	sundaerest.WriteJSON(w, req, http.StatusOK, msg)
}

func (a *API) editMessage(w http.ResponseWriter, req *http.Request) {
	ts, err := timestampParam(req)
	if err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	var in struct {
		Body string `json:"body"`
	}
	if err := sundaerest.DecodeJSON(req, &in); err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}

	msg, err := a.Service.EditMessage(req.Context(), chi.URLParam(req, "roomId"), ts, in.Body)
	if err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	sundaerest.WriteJSON(w, req, http.StatusOK, msg)
}

func (a *API) deleteMessage(w http.ResponseWriter, req *http.Request) {
	ts, err := timestampParam(req)
	if err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	msg, err := a.Service.DeleteMessage(req.Context(), chi.URLParam(req, "roomId"), ts)
	if err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	sundaerest.WriteJSON(w, req, http.StatusOK, msg)
}

func (a *API) notify(w http.ResponseWriter, req *http.Request) {
	var in sundaechat.NotifyInput
	if err := sundaerest.DecodeJSON(req, &in); err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	in.UserID = chi.URLParam(req, "userId")

	n, err := a.Service.Notify(req.Context(), in)
	if err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	sundaerest.WriteJSON(w, req, http.StatusCreated, n)
}

func (a *API) listNotifications(w http.ResponseWriter, req *http.Request) {
	limit, err := intQuery(req, "limit")
	if err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	feed, err := a.Service.ListNotifications(req.Context(), chi.URLParam(req, "userId"), sundaechat.FeedPage{
		Before: req.URL.Query().Get("before"),
		Limit:  int(limit),
	})
	if err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	sundaerest.WriteJSON(w, req, http.StatusOK, feed)
}

func (a *API) updateNotification(w http.ResponseWriter, req *http.Request) {
	var change sundaechat.NotificationUpdate
	if err := sundaerest.DecodeJSON(req, &change); err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	n, err := a.Service.UpdateNotification(req.Context(), chi.URLParam(req, "userId"), chi.URLParam(req, "id"), change)
	if err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	sundaerest.WriteJSON(w, req, http.StatusOK, n)
}

func (a *API) deleteNotification(w http.ResponseWriter, req *http.Request) {
	n, err := a.Service.DeleteNotification(req.Context(), chi.URLParam(req, "userId"), chi.URLParam(req, "id"))
	if err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	sundaerest.WriteJSON(w, req, http.StatusOK, n)
}

type broadcastRequest struct {
	RecipientKey string          `json:"recipientKey"`
	Payload      json.RawMessage `json:"payload"`
}

func (a *API) broadcast(w http.ResponseWriter, req *http.Request) {
	var in broadcastRequest
	if err := sundaerest.DecodeJSON(req, &in); err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}

	if a.Publisher == nil {
		report, err := a.Service.Broadcast(req.Context(), in.RecipientKey, in.Payload)
		if err != nil {
			sundaerest.WriteError(w, req, err)
			return
		}
		sundaerest.WriteJSON(w, req, http.StatusOK, report)
		return
	}

	if _, _, err := sundaews.ParseRecipientKey(in.RecipientKey); err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	if err := sundaews.ValidatePayload(in.Payload); err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	if err := a.Publisher.Send(req.Context(), in.RecipientKey, in.Payload); err != nil {
		sundaerest.WriteError(w, req, err)
		return
	}
	sundaerest.WriteJSON(w, req, http.StatusAccepted, map[string]string{"recipientKey": in.RecipientKey})
}
