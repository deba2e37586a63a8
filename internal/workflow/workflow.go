// Package workflow encodes the grievance escalation state machine: which
// actions each officer level may take and the status and level they lead to.
package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/grievance-api/internal/models"
)

var (
	ErrTerminal        = errors.New("grievance is in a terminal state")
	ErrNoHigherLevel   = errors.New("no higher level to forward to")
	ErrNoLowerLevel    = errors.New("no lower level to send back to")
	ErrResolveNotAtHOD = errors.New("only the HOD level may resolve")
	ErrSubmitOnly      = errors.New("submit is reserved for grievance creation")
	ErrUnknownAction   = errors.New("unknown action")
	ErrInvalidLevel    = errors.New("invalid level")
)

// LevelActions lists the actions an officer of each level may invoke.
var LevelActions = map[models.Level][]models.ActionType{
	models.LevelMandal: {
		models.ActionForward,
		models.ActionRequestInfo,
		models.ActionAddNote,
		models.ActionScheduleVisit,
		models.ActionReject,
	},
	models.LevelDistrict: {
		models.ActionForward,
		models.ActionSendBack,
		models.ActionRequestInfo,
		models.ActionAddNote,
		models.ActionScheduleVisit,
		models.ActionReject,
	},
	models.LevelHOD: {
		models.ActionSendBack,
		models.ActionRequestInfo,
		models.ActionAddNote,
		models.ActionScheduleVisit,
		models.ActionResolve,
		models.ActionReject,
	},
}

var levelStatus = map[models.Level]models.GrievanceStatus{
	models.LevelMandal:   models.StatusAtMandal,
	models.LevelDistrict: models.StatusAtDistrict,
	models.LevelHOD:      models.StatusAtHOD,
}

// Allowed reports whether an officer at level may invoke action.
func Allowed(level models.Level, action models.ActionType) bool {
	for _, a := range LevelActions[level] {
		if a == action {
			return true
		}
	}
	return false
}

// Initial is the state of a freshly submitted grievance.
func Initial() (models.GrievanceStatus, models.Level) {
	return models.StatusAtMandal, models.LevelMandal
}

// StatusForLevel returns the queue status of a level.
func StatusForLevel(level models.Level) (models.GrievanceStatus, error) {
	status, ok := levelStatus[level]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	return status, nil
}

// Consistent reports whether status and level agree. info_requested and the
// terminal statuses keep whatever level they were reached from.
func Consistent(status models.GrievanceStatus, level models.Level) bool {
	if !level.Valid() {
		return false
	}
	switch status {
	case models.StatusSubmitted, models.StatusAtMandal:
		return level == models.LevelMandal
	case models.StatusAtDistrict:
		return level == models.LevelDistrict
	case models.StatusAtHOD:
		return level == models.LevelHOD
	case models.StatusInfoRequested, models.StatusResolved, models.StatusRejected:
		return true
	}
	return false
}

// State is a (status, level) pair.
type State struct {
	Status models.GrievanceStatus
	Level  models.Level
}

// Transition computes the state reached by applying action to from. It does
// not check who is acting; see Allowed.
func Transition(from State, action models.ActionType) (State, error) {
	if from.Status.Terminal() {
		return from, ErrTerminal
	}
	if !from.Level.Valid() {
		return from, fmt.Errorf("%w: %d", ErrInvalidLevel, from.Level)
	}

	switch action {
	case models.ActionForward:
		if from.Level >= models.LevelHOD {
			return from, ErrNoHigherLevel
		}
		return moveTo(from.Level + 1)
	case models.ActionSendBack:
		if from.Level <= models.LevelMandal {
			return from, ErrNoLowerLevel
		}
		return moveTo(from.Level - 1)
	case models.ActionRequestInfo:
		return State{Status: models.StatusInfoRequested, Level: from.Level}, nil
	case models.ActionAddNote, models.ActionScheduleVisit:
		return from, nil
	case models.ActionResolve:
		if from.Level != models.LevelHOD {
			return from, ErrResolveNotAtHOD
		}
		return State{Status: models.StatusResolved, Level: from.Level}, nil
	case models.ActionReject:
		return State{Status: models.StatusRejected, Level: from.Level}, nil
	case models.ActionSubmit:
		return from, ErrSubmitOnly
	}
	return from, fmt.Errorf("%w: %q", ErrUnknownAction, action)
}

func moveTo(level models.Level) (State, error) {
	status, err := StatusForLevel(level)
	if err != nil {
		return State{}, err
	}
	return State{Status: status, Level: level}, nil
}

// RequiresReason reports whether the action must carry a reason.
func RequiresReason(action models.ActionType) bool {
	return action == models.ActionSendBack || action == models.ActionReject
}

// PublicByDefault reports whether the entry is citizen visible unless the
// officer says otherwise. Only notes default to internal.
func PublicByDefault(action models.ActionType) bool {
	return action != models.ActionAddNote
}

// Visibility resolves the citizen visibility of an entry. Only notes and
// rejections may be hidden; every other action moves the grievance in a way
// the citizen must be able to see.
func Visibility(action models.ActionType, requested *bool) bool {
	if requested == nil {
		return PublicByDefault(action)
	}
	switch action {
	case models.ActionAddNote, models.ActionReject:
		return *requested
	}
	return true
}

// PriorityForAge is the minimum priority of a grievance that has been open
// since submittedAt: medium after 7 days, high after 15, urgent after 30.
func PriorityForAge(submittedAt, now time.Time) models.Priority {
	days := now.Sub(submittedAt).Hours() / 24
	switch {
	case days > 30:
		return models.PriorityUrgent
	case days > 15:
		return models.PriorityHigh
	case days > 7:
		return models.PriorityMedium
	}
	return models.PriorityLow
}

// AgedPriority raises current to the age floor while the grievance is open.
// Closed grievances keep the priority they were closed with.
func AgedPriority(status models.GrievanceStatus, current models.Priority, submittedAt, now time.Time) models.Priority {
	if status.Terminal() {
		return current
	}
	if floor := PriorityForAge(submittedAt, now); floor.Rank() > current.Rank() {
		return floor
	}
	return current
}
