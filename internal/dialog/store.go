package dialog

import (
	"sync"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
)

// Step текущий вопрос диалога
type Step string

const (
	StepNone          Step = "" // Нет активного диалога
	StepPeople        Step = "people"
	StepPeopleCustom  Step = "people_custom"
	StepZone          Step = "zone"
	StepAnimals       Step = "animals"
	StepAnimalsCustom Step = "animals_custom"
	StepBackground    Step = "background"
)

// Conversation состояние диалога выбора услуг одного пользователя
type Conversation struct {
	Identity  int64
	BookingID int64
	Step      Step
	Selection model.Selection // Заполняется по мере ответов
	StartedAt time.Time
	UpdatedAt time.Time
}

// Store хранит диалоги в памяти процесса, не больше одного на пользователя
type Store struct {
	mu    sync.RWMutex
	convs map[int64]*Conversation // telegramID -> Conversation
}

// NewStore создаёт пустое хранилище диалогов
func NewStore() *Store {
	return &Store{
		convs: make(map[int64]*Conversation),
	}
}

// Get получает копию диалога пользователя
func (s *Store) Get(identity int64) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if conv, exists := s.convs[identity]; exists {
		return *conv, true
	}
	return Conversation{}, false
}

// Save создаёт или заменяет диалог пользователя
func (s *Store) Save(conv Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv.Step == StepNone {
		delete(s.convs, conv.Identity)
		return
	}
	s.convs[conv.Identity] = &conv
}

// Delete удаляет диалог пользователя
func (s *Store) Delete(identity int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.convs, identity)
}

// ExpireIdle удаляет диалоги без активности с момента before и возвращает их
func (s *Store) ExpireIdle(before time.Time) []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []Conversation
	for id, conv := range s.convs {
		if conv.UpdatedAt.Before(before) {
			expired = append(expired, *conv)
			delete(s.convs, id)
		}
	}
	return expired
}

// Len количество активных диалогов
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.convs)
}

// keyedMutex сериализует обработку сообщений одного пользователя
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*refLock)}
}

// Lock блокирует ключ и возвращает функцию разблокировки
func (k *keyedMutex) Lock(key int64) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
