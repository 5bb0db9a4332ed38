package jobs

import (
	"github.com/nats-io/nats.go"

	"github.com/SeanMkhabela/stackgen-backend/connector"
	"github.com/SeanMkhabela/stackgen-backend/xerrors"
)

// queue 不透明记录的出入口，便于在测试中替换传输层
type queue interface {
	publish(subject string, data []byte) error
	queueSubscribe(subject, group string, cb func(data []byte)) (subscription, error)
}

// subscription 可取消的订阅
type subscription interface {
	Unsubscribe() error
}

// natsQueue 基于借用 NATS 连接器的队列
type natsQueue struct {
	conn connector.NATSConnector
}

func newNATSQueue(conn connector.NATSConnector) *natsQueue {
	return &natsQueue{conn: conn}
}

func (q *natsQueue) publish(subject string, data []byte) error {
	client := q.conn.GetClient()
	if client == nil {
		return connector.ErrNotConnected
	}
	if err := client.Publish(subject, data); err != nil {
		return xerrors.Wrapf(err, "jobs: publish to %s failed", subject)
	}
	return nil
}

func (q *natsQueue) queueSubscribe(subject, group string, cb func(data []byte)) (subscription, error) {
	client := q.conn.GetClient()
	if client == nil {
		return nil, connector.ErrNotConnected
	}
	sub, err := client.QueueSubscribe(subject, group, func(msg *nats.Msg) {
		cb(msg.Data)
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "jobs: subscribe %s failed", subject)
	}
	return sub, nil
}
