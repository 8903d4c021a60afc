package ethos

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ethosradar/backend/internal/r4r"
)

// flexID accepts ids sent either as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type userDTO struct {
	ID          flexID   `json:"id"`
	ProfileID   *int64   `json:"profileId"`
	DisplayName string   `json:"displayName"`
	Username    string   `json:"username"`
	AvatarURL   string   `json:"avatarUrl"`
	Score       float64  `json:"score"`
	Userkeys    []string `json:"userkeys"`
}

// canonicalKey prefers the profile id, then the first advertised userkey.
func (u userDTO) canonicalKey(fallback string) string {
	if u.ProfileID != nil && *u.ProfileID > 0 {
		return "profileId:" + strconv.FormatInt(*u.ProfileID, 10)
	}
	for _, k := range u.Userkeys {
		if k != "" {
			return k
		}
	}
	return fallback
}

func (u userDTO) toIdentity(fallbackKey string) r4r.Identity {
	return r4r.Identity{
		Userkey:     u.canonicalKey(fallbackKey),
		DisplayName: u.DisplayName,
		Username:    u.Username,
		AvatarURL:   u.AvatarURL,
		Score:       u.Score,
	}
}

// actorDTO is the author or subject attached to an activity.
type actorDTO struct {
	Userkey   string  `json:"userkey"`
	ProfileID *int64  `json:"profileId"`
	Name      string  `json:"name"`
	Username  string  `json:"username"`
	Avatar    string  `json:"avatar"`
	Score     float64 `json:"score"`
}

func (a actorDTO) toIdentity() r4r.Identity {
	key := a.Userkey
	if a.ProfileID != nil && *a.ProfileID > 0 {
		key = "profileId:" + strconv.FormatInt(*a.ProfileID, 10)
	}
	return r4r.Identity{
		Userkey:     key,
		DisplayName: a.Name,
		Username:    a.Username,
		AvatarURL:   a.Avatar,
		Score:       a.Score,
	}
}

type activityDTO struct {
	Type string `json:"type"`
	Data struct {
		ID        flexID          `json:"id"`
		Score     string          `json:"score"`
		Comment   string          `json:"comment"`
		CreatedAt json.RawMessage `json:"createdAt"`
	} `json:"data"`
	Timestamp json.RawMessage `json:"timestamp"`
	Author    actorDTO        `json:"author"`
	Subject   actorDTO        `json:"subject"`
}

func (a activityDTO) toReview() r4r.ReviewRecord {
	ts, ok := r4r.NormalizeTimestamp(a.Data.CreatedAt)
	if !ok {
		ts, _ = r4r.NormalizeTimestamp(a.Timestamp)
	}
	return r4r.ReviewRecord{
		ID:        string(a.Data.ID),
		Author:    a.Author.toIdentity(),
		Subject:   a.Subject.toIdentity(),
		Sentiment: r4r.ParseSentiment(strings.ToLower(a.Data.Score)),
		Comment:   a.Data.Comment,
		Timestamp: ts,
	}
}

type activitiesRequest struct {
	Userkey           string   `json:"userkey"`
	Direction         string   `json:"direction"`
	Filter            []string `json:"filter"`
	ExcludeHistorical bool     `json:"excludeHistorical"`
	Limit             int      `json:"limit"`
	Offset            int      `json:"offset"`
}

type activitiesResponse struct {
	Values []activityDTO `json:"values"`
	Total  int           `json:"total"`
}

type userkeysRequest struct {
	Userkeys []string `json:"userkeys"`
}

type searchResponse struct {
	Values []userDTO `json:"values"`
	Total  int       `json:"total"`
}

type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
