package models

const (
	StatusActive   = "active"
	StatusExecute  = "execute"
	StatusTransfer = "transfer"
	StatusDeleted  = "deleted"
)

// Statuses is the fixed lifecycle enumeration. Any status may move to any other.
var Statuses = []string{StatusActive, StatusExecute, StatusTransfer, StatusDeleted}

func ValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

type IdeaUpdateReq struct {
	Body        *string  `json:"body" validate:"required"`
	Tags        []string `json:"tags"`
	Blockers    []string `json:"blockers"`
	BornWithIDs []int64  `json:"born_with_ids"`
}

type IdeaCreateReq struct {
	IdeaUpdateReq
	Status string `json:"status" validate:"omitempty,oneof=active execute transfer deleted"`
}

type IdeaStatusReq struct {
	Status string `query:"status" validate:"required,oneof=active execute transfer deleted"`
}

type IdeaRandomReq struct {
	Status string `query:"status" validate:"omitempty,oneof=active execute transfer deleted"`
}

type IdeaSearchReq struct {
	Keyword string `query:"keyword"`
	Tags    string `query:"tags"`
	Status  string `query:"status" validate:"omitempty,oneof=active execute transfer deleted"`
}

type IdeaLinkResp struct {
	IdeaID int64    `json:"idea_id"`
	Body   string   `json:"body"`
	Tags   []string `json:"tags"`
}

type IdeaResp struct {
	IdeaID   int64          `json:"idea_id"`
	Body     string         `json:"body"`
	Status   string         `json:"status"`
	Tags     []string       `json:"tags"`
	Blockers []string       `json:"blockers"`
	BornWith []IdeaLinkResp `json:"born_with"`
}

type IdeaSearchResp struct {
	IdeaID int64    `json:"idea_id"`
	Body   string   `json:"body"`
	Tags   []string `json:"tags"`
}
