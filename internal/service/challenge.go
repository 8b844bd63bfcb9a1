package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"lichess-gateway/internal/model"
)

const challengeFailure = "Failed to create challenge"

var validate = validator.New()

// fieldMessages maps validator failures on ChallengeRequest to caller messages.
var fieldMessages = map[string]string{
	"Username": "Username is required",
}

// CreateChallenge checks that the opponent exists, then creates the challenge.
// It issues at most two upstream calls, in that order.
func (g *Gateway) CreateChallenge(ctx context.Context, req *model.ChallengeRequest) (*model.ChallengeResult, error) {
	if err := validateChallenge(req); err != nil {
		return nil, err
	}

	result, err := g.createChallenge(ctx, req)
	if err != nil {
		return nil, classifyChallenge(err)
	}
	return result, nil
}

func (g *Gateway) createChallenge(ctx context.Context, req *model.ChallengeRequest) (*model.ChallengeResult, error) {
	username := url.PathEscape(req.Username)

	lookupURL := g.upstreamURL("/api/user/"+username, nil)
	if _, err := g.call(ctx, "user_lookup", http.MethodGet, lookupURL, g.header(mediaJSON, false), nil); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, notFoundError("User not found")
		}
		return nil, err
	}

	if !g.cfg.Lichess.HasToken() {
		return nil, configError("OAuth token not configured")
	}

	g.logger.Debug("creating challenge", "opponent", req.Username)

	challengeURL := g.upstreamURL("/api/challenge/"+username, nil)
	resp, err := g.call(ctx, "challenge", http.MethodPost, challengeURL, g.header(mediaJSON, true), ChallengeForm(req))
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(resp.Body) {
		return nil, errInvalidBody
	}

	result := &model.ChallengeResult{
		Success:   true,
		Challenge: json.RawMessage(resp.Body),
		Message:   fmt.Sprintf("Challenge sent successfully to %s!", req.Username),
	}
	if id := challengeID(resp.Body); id != "" {
		viewer := g.cfg.Upstream.SiteURL + "/" + id
		result.LichessURL = &viewer
	}
	return result, nil
}

// ChallengeForm builds the form body sent to the challenge endpoint. Clock
// fields are sent only as a pair; rated is sent whenever it was supplied.
func ChallengeForm(req *model.ChallengeRequest) url.Values {
	form := make(url.Values)
	if req.Rated != nil {
		form.Set("rated", strconv.FormatBool(*req.Rated))
	}
	if req.ClockLimit != nil && req.ClockIncrement != nil {
		form.Set("clock.limit", strconv.Itoa(*req.ClockLimit))
		form.Set("clock.increment", strconv.Itoa(*req.ClockIncrement))
	}
	if req.Days != nil {
		form.Set("days", strconv.Itoa(*req.Days))
	}
	if req.Color != "" {
		form.Set("color", req.Color)
	}
	if req.Variant != "" {
		form.Set("variant", req.Variant)
	}
	if req.FEN != "" {
		form.Set("fen", req.FEN)
	}
	return form
}

func validateChallenge(req *model.ChallengeRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if msg, ok := fieldMessages[fe.Field()]; ok {
				return validationError(msg)
			}
		}
	}
	return validationError("Invalid challenge parameters")
}

// challengeID reads the created challenge id; Lichess nests it under
// "challenge" but some responses carry it at the top level.
func challengeID(body []byte) string {
	if id := gjson.GetBytes(body, "challenge.id"); id.Exists() {
		return id.String()
	}
	return gjson.GetBytes(body, "id").String()
}

func classifyChallenge(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusBadRequest:
			msg := gjson.GetBytes(se.Body, "error").String()
			if msg == "" {
				msg = "Invalid challenge parameters"
			}
			return &Error{Kind: ErrValidation, Message: msg, Err: err}
		case http.StatusTooManyRequests:
			return rateLimitError(err)
		}
	}
	return upstreamError(challengeFailure, err)
}
