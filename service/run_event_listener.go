package service

import (
	"sync"

	"github.com/buraksezer/olric"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Netcracker/qubership-data-contract-validator/client"
	"github.com/Netcracker/qubership-data-contract-validator/utils"
)

// RunEventListener broadcasts run updates between replicas so their local caches drop stale copies.
type RunEventListener interface {
	Start()
	Publish(runId string)
	listen(message olric.DTopicMessage)
}

func NewRunEventListener(op client.OlricProvider, onUpdate func(runId string)) RunEventListener {
	return &runEventListenerImpl{
		op:        op,
		nodeId:    uuid.NewString(),
		onUpdate:  onUpdate,
		isReadyWg: sync.WaitGroup{},
	}
}

type runEventListenerImpl struct {
	op              client.OlricProvider
	nodeId          string
	onUpdate        func(runId string)
	runUpdatedTopic *olric.DTopic
	isReadyWg       sync.WaitGroup
}

func (p *runEventListenerImpl) Start() {
	p.isReadyWg.Add(1)
	utils.SafeAsync(func() {
		p.initRunUpdatedDTopic()
	})
}

func (p *runEventListenerImpl) Publish(runId string) {
	p.isReadyWg.Wait()
	if p.runUpdatedTopic == nil {
		return
	}
	msg, err := json.Marshal(RunUpdatedNotification{RunId: runId, Origin: p.nodeId})
	if err != nil {
		log.Errorf("RunEventListener.Publish: error marshalling notification: %v", err)
		return
	}
	if err = p.runUpdatedTopic.Publish(string(msg)); err != nil {
		log.Errorf("RunEventListener.Publish: failed to publish update of run %s: %v", runId, err)
	}
}

func (p *runEventListenerImpl) listen(message olric.DTopicMessage) {
	str, ok := message.Message.(string)
	if !ok {
		log.Warnf("RunEventListener.listen: unexpected event %+v, will not be processed", message.Message)
		return
	}

	var notification RunUpdatedNotification
	err := json.Unmarshal([]byte(str), &notification)
	if err != nil {
		log.Errorf("RunEventListener.listen: error unmarshalling run notification: %v", err)
		return
	}
	if notification.Origin == p.nodeId {
		return
	}
	log.Debugf("Run %s was updated on %s", notification.RunId, notification.Origin)
	p.onUpdate(notification.RunId)
}

func (p *runEventListenerImpl) initRunUpdatedDTopic() {
	defer p.isReadyWg.Done()
	topic, err := p.op.Get().NewDTopic(RunUpdatedTopicName, runUpdatedTopicCapacity, olric.UnorderedDelivery)
	if err != nil {
		log.Errorf("Failed to create DTopic %s: %s", RunUpdatedTopicName, err.Error())
		return
	}

	_, err = topic.AddListener(p.listen)
	if err != nil {
		log.Errorf("Failed to add listener to DTopic %s: %s", RunUpdatedTopicName, err.Error())
		return
	}
	p.runUpdatedTopic = topic
	log.Infof("Listening for run updates on %s (node %s)", p.op.GetBindAddr(), p.nodeId)
}
