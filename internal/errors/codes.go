// Package errors provides coded domain errors for the dungeon engine.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Precondition faults, surfaced to callers as Go errors.
	CodeNoActiveGame     Code = "NO_ACTIVE_GAME"
	CodeUnknownCommand   Code = "UNKNOWN_COMMAND"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeStateCorrupt     Code = "STATE_CORRUPT"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeStorageFailure   Code = "STORAGE_FAILURE"
	CodeGameAlreadyExist Code = "GAME_ALREADY_EXISTS"

	// Rule rejections, surfaced as {ok:false, error}.
	CodeWrongPhase        Code = "WRONG_PHASE"
	CodeWrongMode         Code = "WRONG_MODE"
	CodeNotYourTurn       Code = "NOT_YOUR_TURN"
	CodeNotInParty        Code = "NOT_IN_PARTY"
	CodeCharacterDead     Code = "CHARACTER_DEAD"
	CodeInvalidTarget     Code = "INVALID_TARGET"
	CodeInsufficientMP    Code = "INSUFFICIENT_MP"
	CodeInsufficientGold  Code = "INSUFFICIENT_GOLD"
	CodeNotAllowed        Code = "NOT_ALLOWED"
	CodeNotHealer         Code = "NOT_HEALER"
	CodeResurrectionBlock Code = "RESURRECTION_BLOCKED"
	CodeBossPresent       Code = "BOSS_PRESENT"
	CodeNoEligibleEnemies Code = "NO_ELIGIBLE_ENEMIES"
	CodeNotNegotiable     Code = "NOT_NEGOTIABLE"
	CodeRoomBlocked       Code = "ROOM_BLOCKED"
	CodeUnknownItem       Code = "UNKNOWN_ITEM"
	CodeUnknownSpell      Code = "UNKNOWN_SPELL"
	CodeUnknownSkill      Code = "UNKNOWN_SKILL"
	CodeUnknownLocation   Code = "UNKNOWN_LOCATION"
	CodeAlreadyJoined     Code = "ALREADY_JOINED"
	CodePartyFull         Code = "PARTY_FULL"
	CodeSetupOutOfTurn    Code = "SETUP_OUT_OF_TURN"
)

// IsRule reports whether the code is a game-rule rejection.
func (c Code) IsRule() bool {
	switch c {
	case CodeWrongPhase,
		CodeWrongMode,
		CodeNotYourTurn,
		CodeNotInParty,
		CodeCharacterDead,
		CodeInvalidTarget,
		CodeInsufficientMP,
		CodeInsufficientGold,
		CodeNotAllowed,
		CodeNotHealer,
		CodeResurrectionBlock,
		CodeBossPresent,
		CodeNoEligibleEnemies,
		CodeNotNegotiable,
		CodeRoomBlocked,
		CodeUnknownItem,
		CodeUnknownSpell,
		CodeUnknownSkill,
		CodeUnknownLocation,
		CodeAlreadyJoined,
		CodePartyFull,
		CodeSetupOutOfTurn:
		return true
	default:
		return false
	}
}

// HTTPStatus maps the code to an HTTP status for the REST surface.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument, CodeUnknownCommand:
		return http.StatusBadRequest
	case CodeNoActiveGame, CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeGameAlreadyExist:
		return http.StatusConflict
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeStateCorrupt, CodeStorageFailure, CodeUnknown:
		return http.StatusInternalServerError
	}
	if c.IsRule() {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
