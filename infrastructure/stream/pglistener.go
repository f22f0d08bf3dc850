package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/sales-celebration/internal/config"
	"github.com/vfg2006/sales-celebration/internal/domain"
)

// NotifyChannel é o canal LISTEN/NOTIFY alimentado pelos triggers das tabelas
// transactions e sellers (ver infrastructure/migration).
const NotifyChannel = "sales_events"

const (
	minReconnectInterval = 5 * time.Second
	maxReconnectInterval = time.Minute
	eventBufferSize      = 64
)

type PGSubscriber struct {
	dsn string
}

func NewPGSubscriber(cfg config.Database) *PGSubscriber {
	return &PGSubscriber{dsn: cfg.DSN}
}

func (s *PGSubscriber) Subscribe(ctx context.Context) (Stream, error) {
	listener := pq.NewListener(s.dsn, minReconnectInterval, maxReconnectInterval, listenerEventLogger)

	if err := listener.Listen(NotifyChannel); err != nil {
		_ = listener.Close()
		return nil, errors.Wrap(err, "erro ao registrar LISTEN no canal de eventos")
	}

	logrus.WithField("channel", NotifyChannel).Info("Assinatura de eventos do banco estabelecida")

	st := &pgStream{
		listener: listener,
		events:   make(chan domain.ChangeEvent, eventBufferSize),
		done:     make(chan struct{}),
	}

	st.wg.Add(1)
	go st.run(ctx)

	return st, nil
}

func listenerEventLogger(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		logrus.Debug("Listener de eventos conectado")
	case pq.ListenerEventReconnected:
		// O tick defensivo do agregador cobre o que se perdeu no intervalo.
		logrus.Warn("Listener de eventos reconectado após queda")
	case pq.ListenerEventDisconnected:
		logrus.WithError(err).Warn("Listener de eventos desconectado")
	case pq.ListenerEventConnectionAttemptFailed:
		logrus.WithError(err).Warn("Falha ao reconectar o listener de eventos")
	}
}

type pgStream struct {
	listener *pq.Listener
	events   chan domain.ChangeEvent
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

func (s *pgStream) Events() <-chan domain.ChangeEvent {
	return s.events
}

// Close encerra a assinatura e só retorna depois que a goroutine de consumo
// parou; nenhum evento é entregue após o retorno.
func (s *pgStream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.listener.Close()
		s.wg.Wait()
	})
	return err
}

func (s *pgStream) run(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.events)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case notification, ok := <-s.listener.NotificationChannel():
			if !ok {
				return
			}
			// Notificação nil sinaliza reconexão do driver.
			if notification == nil {
				continue
			}

			event, err := parseNotification(notification.Extra)
			if err != nil {
				logrus.WithError(err).Warn("Notificação de mudança malformada descartada")
				continue
			}

			select {
			case s.events <- event:
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

type notifyPayload struct {
	Table string          `json:"table"`
	Type  string          `json:"type"`
	Row   json.RawMessage `json:"row"`
}

func parseNotification(payload string) (domain.ChangeEvent, error) {
	var parsed notifyPayload
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return domain.ChangeEvent{}, errors.Wrap(err, "erro ao decodificar payload da notificação")
	}

	changeType, err := domain.ParseChangeType(parsed.Type)
	if err != nil {
		return domain.ChangeEvent{}, err
	}

	return domain.ChangeEvent{
		Table: parsed.Table,
		Type:  changeType,
		Row:   parsed.Row,
	}, nil
}
