package session

import (
	"encoding/json"
	"fmt"

	"github.com/lyzr/entityeditor/common/models"
	"github.com/lyzr/entityeditor/common/rows"
)

// Command ops accepted by Dispatch
const (
	OpNameSet             = "name.set"
	OpAliasAdd            = "alias.add"
	OpAliasUpdate         = "alias.update"
	OpAliasRemove         = "alias.remove"
	OpAliasPrune          = "alias.prune"
	OpIdentifierAdd       = "identifier.add"
	OpIdentifierSetValue  = "identifier.setValue"
	OpIdentifierSetType   = "identifier.setType"
	OpIdentifierConfirm   = "identifier.confirm"
	OpIdentifierRemove    = "identifier.remove"
	OpIdentifierPrune     = "identifier.prune"
	OpIdentifierCompanion = "identifier.acceptCompanion"
	OpRelationshipAdd     = "relationship.add"
	OpRelationshipEdit    = "relationship.edit"
	OpRelationshipRemove  = "relationship.remove"
	OpRelationshipUndo    = "relationship.undo"
	OpSeriesAdd           = "series.add"
	OpSeriesRemove        = "series.remove"
	OpSeriesReorder       = "series.reorder"
	OpSeriesSetNumber     = "series.setNumber"
	OpSeriesSetOrderType  = "series.setOrderType"
	OpSeriesSetSeriesType = "series.setSeriesType"
	OpSeriesUndo          = "series.undo"
	OpAnnotationSet       = "annotation.set"
	OpNoteSet             = "note.set"
	OpAuthorCreditsSet    = "authorCredits.set"
	OpFlush               = "flush"
)

// Command is one user gesture as sent by the UI
type Command struct {
	Op    string          `json:"op"`
	RowID rows.RowID      `json:"rowId,omitempty"`
	Field string          `json:"field,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`

	// relationship and series commands
	Entity             *models.Entity `json:"entity,omitempty"`
	RelationshipTypeID int            `json:"relationshipTypeId,omitempty"`
	Reversed           bool           `json:"reversed,omitempty"`
	From               int            `json:"from,omitempty"`
	To                 int            `json:"to,omitempty"`
}

// Result reports what a command did
type Result struct {
	Op      string     `json:"op"`
	RowID   rows.RowID `json:"rowId,omitempty"`
	Applied bool       `json:"applied"`
	Pending bool       `json:"pending,omitempty"`
}

func decodeValue[T any](cmd Command) (T, error) {
	var v T
	if len(cmd.Value) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(cmd.Value, &v); err != nil {
		return v, fmt.Errorf("%s: invalid value: %w", cmd.Op, err)
	}
	return v, nil
}

func requireEntity(cmd Command) (models.Entity, error) {
	if cmd.Entity == nil {
		return models.Entity{}, fmt.Errorf("%s: entity is required", cmd.Op)
	}
	return *cmd.Entity, nil
}

// Dispatch applies one command. Text edits are queued and reported as
// pending; everything else applies immediately.
func (s *Session) Dispatch(cmd Command) (Result, error) {
	if s.isClosed() {
		return Result{Op: cmd.Op}, ErrClosed
	}

	res := Result{Op: cmd.Op, RowID: cmd.RowID, Applied: true}
	pending := func() (Result, error) {
		res.Applied, res.Pending = false, true
		return res, nil
	}

	var err error
	switch cmd.Op {
	case OpNameSet:
		var value any
		if value, err = decodeValue[any](cmd); err != nil {
			return res, err
		}
		if err = s.SetName(cmd.Field, value); err != nil {
			return res, err
		}
		if cmd.Field != NameFieldLanguage {
			return pending()
		}

	case OpAliasAdd:
		res.RowID, err = s.AddAlias()
	case OpAliasUpdate:
		var value any
		if value, err = decodeValue[any](cmd); err != nil {
			return res, err
		}
		if err = s.UpdateAlias(cmd.RowID, cmd.Field, value); err != nil {
			return res, err
		}
		if cmd.Field == models.AliasFieldName || cmd.Field == models.AliasFieldSortName {
			return pending()
		}
	case OpAliasRemove:
		err = s.RemoveAlias(cmd.RowID)
	case OpAliasPrune:
		err = s.PruneAliases()

	case OpIdentifierAdd:
		res.RowID, err = s.AddIdentifier()
	case OpIdentifierSetValue:
		var raw string
		if raw, err = decodeValue[string](cmd); err != nil {
			return res, err
		}
		s.SetIdentifierValue(cmd.RowID, raw)
		return pending()
	case OpIdentifierSetType:
		var typeID int
		if typeID, err = decodeValue[int](cmd); err != nil {
			return res, err
		}
		err = s.SetIdentifierType(cmd.RowID, typeID)
	case OpIdentifierConfirm:
		confirmed := true
		if len(cmd.Value) > 0 {
			if confirmed, err = decodeValue[bool](cmd); err != nil {
				return res, err
			}
		}
		err = s.ConfirmIdentifier(cmd.RowID, confirmed)
	case OpIdentifierRemove:
		err = s.RemoveIdentifier(cmd.RowID)
	case OpIdentifierPrune:
		err = s.PruneIdentifiers()
	case OpIdentifierCompanion:
		res.RowID, err = s.AcceptCompanion(cmd.RowID)

	case OpRelationshipAdd:
		var other models.Entity
		if other, err = requireEntity(cmd); err != nil {
			return res, err
		}
		res.RowID, err = s.AddRelationship(other, cmd.RelationshipTypeID, cmd.Reversed)
	case OpRelationshipEdit:
		var other models.Entity
		if other, err = requireEntity(cmd); err != nil {
			return res, err
		}
		err = s.EditRelationship(cmd.RowID, other, cmd.RelationshipTypeID, cmd.Reversed)
	case OpRelationshipRemove:
		err = s.RemoveRelationship(cmd.RowID)
	case OpRelationshipUndo:
		res.Applied, err = s.UndoRelationship()

	case OpSeriesAdd:
		var member models.Entity
		if member, err = requireEntity(cmd); err != nil {
			return res, err
		}
		res.RowID, err = s.AddSeriesItem(member, cmd.RelationshipTypeID)
	case OpSeriesRemove:
		err = s.RemoveSeriesItem(cmd.RowID)
	case OpSeriesReorder:
		res.Applied, err = s.ReorderSeries(cmd.From, cmd.To)
	case OpSeriesSetNumber:
		var number string
		if number, err = decodeValue[string](cmd); err != nil {
			return res, err
		}
		if err = s.SetSeriesNumber(cmd.RowID, number); err != nil {
			return res, err
		}
		return pending()
	case OpSeriesSetOrderType:
		var orderType int
		if orderType, err = decodeValue[int](cmd); err != nil {
			return res, err
		}
		err = s.SetSeriesOrderType(orderType)
	case OpSeriesSetSeriesType:
		var entityType models.EntityType
		if entityType, err = decodeValue[models.EntityType](cmd); err != nil {
			return res, err
		}
		err = s.SetSeriesType(entityType)
	case OpSeriesUndo:
		res.Applied, err = s.UndoSeries()

	case OpAnnotationSet:
		var text string
		if text, err = decodeValue[string](cmd); err != nil {
			return res, err
		}
		s.SetAnnotation(text)
		return pending()
	case OpNoteSet:
		var text string
		if text, err = decodeValue[string](cmd); err != nil {
			return res, err
		}
		s.SetNote(text)
		return pending()
	case OpAuthorCreditsSet:
		var credits []models.AuthorCredit
		if credits, err = decodeValue[[]models.AuthorCredit](cmd); err != nil {
			return res, err
		}
		err = s.SetAuthorCredits(credits)

	case OpFlush:
		s.Flush()

	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Op)
	}

	if err != nil {
		return res, err
	}
	s.logger.Debug("command applied", "session_id", s.id, "op", cmd.Op, "row", res.RowID)
	return res, nil
}
