package models

import "fmt"

// ActorType tags who performed a timeline action.
type ActorType string

const (
	ActorCitizen ActorType = "citizen"
	ActorOfficer ActorType = "officer"
	ActorSystem  ActorType = "system"
)

// Actor is a closed variant. Only officers carry an ID.
type Actor struct {
	Type ActorType `json:"type"`
	ID   string    `json:"id,omitempty"`
	Name string    `json:"name"`
}

func CitizenActor(name string) Actor {
	return Actor{Type: ActorCitizen, Name: name}
}

func OfficerActor(id, name string) Actor {
	return Actor{Type: ActorOfficer, ID: id, Name: name}
}

func SystemActor() Actor {
	return Actor{Type: ActorSystem, Name: "System"}
}

// Validate rejects shapes that mix variants.
func (a Actor) Validate() error {
	switch a.Type {
	case ActorOfficer:
		if a.ID == "" {
			return fmt.Errorf("officer actor requires an id")
		}
	case ActorCitizen, ActorSystem:
		if a.ID != "" {
			return fmt.Errorf("%s actor must not carry an id", a.Type)
		}
	default:
		return fmt.Errorf("unknown actor type %q", a.Type)
	}
	return nil
}
