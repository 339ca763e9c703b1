package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shestoi/stockhold/services/reservation/internal/repository"
)

// activeStates состояния, в которых резерв держит сток и может истечь
var activeStates = []string{repository.StatePending, repository.StateConfirmed}

// lifecycleRank порядок основного жизненного цикла PENDING -> CONFIRMED -> COMPLETED
var lifecycleRank = map[string]int{
	repository.StatePending:   0,
	repository.StateConfirmed: 1,
	repository.StateCompleted: 2,
}

func isTerminal(state string) bool {
	switch state {
	case repository.StateCompleted, repository.StateCancelled, repository.StateExpired:
		return true
	}
	return false
}

// canTransitionByUpdate проверяет переход, запрошенный через update.
// CANCELLED и EXPIRED выставляются только delete и sweeper.
// Пользовательские состояния из справочника в основной цикл не входят и не ограничиваются.
func canTransitionByUpdate(from, to string) bool {
	if from == to {
		return true
	}
	if isTerminal(from) {
		return false
	}
	if to == repository.StateCancelled || to == repository.StateExpired {
		return false
	}
	fromRank, fromKnown := lifecycleRank[from]
	toRank, toKnown := lifecycleRank[to]
	if fromKnown && toKnown {
		return toRank == fromRank+1
	}
	return true
}

// resolveStates находит ID состояний по именам.
// Отсутствие любого имени - ошибка конфигурации (*StateCatalogError).
func resolveStates(ctx context.Context, states repository.StateRepository, names ...string) (map[string]int64, error) {
	found, err := states.GetByNames(ctx, names)
	if err != nil {
		return nil, unexpected("resolve reservation states", err)
	}

	ids := make(map[string]int64, len(names))
	var missing []string
	for _, name := range names {
		st, ok := found[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		ids[name] = st.ID
	}
	if len(missing) > 0 {
		return nil, &StateCatalogError{Missing: missing}
	}
	return ids, nil
}

// loadState возвращает состояние по ID, неизвестный ID - *ReferenceError
// loadInitialState состояние для нового резерва: терминальные (COMPLETED, CANCELLED, EXPIRED) запрещены,
// такой резерв не вернул бы сток ни через sweeper, ни через delete
func loadInitialState(ctx context.Context, states repository.StateRepository, id int64) (repository.State, error) {
	st, err := loadState(ctx, states, id)
	if err != nil {
		return repository.State{}, err
	}
	if isTerminal(st.Name) {
		return repository.State{}, validation("state_id", "reservation cannot be created in terminal state %s", st.Name)
	}
	return st, nil
}

func loadState(ctx context.Context, states repository.StateRepository, id int64) (repository.State, error) {
	st, err := states.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrStateNotFound) {
			return repository.State{}, &ReferenceError{Entity: "state", ID: id}
		}
		return repository.State{}, unexpected(fmt.Sprintf("load state %d", id), err)
	}
	return st, nil
}
