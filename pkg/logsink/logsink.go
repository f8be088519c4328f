// Package logsink moves request log entries from Kafka into Elasticsearch.
package logsink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"profanity/pkg/models"
)

type Config struct {
	LogLevel     string   `toml:"logLevel"`
	KafkaBrokers []string `toml:"kafkaBrokers"`
	KafkaTopic   string   `toml:"kafkaTopic"`
	KafkaGroupID string   `toml:"kafkaGroupID"`

	ElasticSearchIndex string   `toml:"elasticSearchIndex"`
	ElasticSearchNodes []string `toml:"elasticSearchNodes"`

	NumWorkers int `toml:"numWorkers"`
}

// Reader is the part of *kafka.Reader the sink consumes.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Indexer stores one log document under id.
type Indexer interface {
	Index(ctx context.Context, id string, doc []byte) error
}

// Sink reads messages and hands them to a fixed pool of workers.
type Sink struct {
	r          Reader
	idx        Indexer
	numWorkers int
}

func New(r Reader, idx Indexer, numWorkers int) *Sink {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &Sink{r: r, idx: idx, numWorkers: numWorkers}
}

// Run blocks until ctx is canceled or the reader fails permanently. Workers
// drain the messages already read before Run returns.
func (s *Sink) Run(ctx context.Context) {
	jobs := make(chan kafka.Message, s.numWorkers*5) // buffer is needed to increase throughput
	var wg sync.WaitGroup
	wg.Add(s.numWorkers)
	for workerID := 0; workerID < s.numWorkers; workerID++ {
		go func(id int) {
			defer wg.Done()
			s.worker(ctx, jobs, id)
		}(workerID)
	}

	log.Info("[logsink] accepting logs...")
	for {
		msg, err := s.r.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				break
			}
			if errors.Is(err, io.EOF) {
				log.Info("[logsink] reader closed")
				break
			}
			log.Errorf("[logsink] failed to read message from Kafka: %v", err)
			continue
		}
		log.Debugf("[logsink] received message: %s", string(msg.Value))

		jobs <- msg
	}

	close(jobs)
	wg.Wait()
}

func (s *Sink) worker(ctx context.Context, jobs <-chan kafka.Message, workerID int) {
	for msg := range jobs {
		var entry models.LogEntry
		if err := json.Unmarshal(msg.Value, &entry); err != nil {
			log.Errorf("[logsink][workerID:%d] failed to unmarshal log entry: %v", workerID, err)
			continue
		}

		// Indexing outlives cancellation so buffered entries are not lost on
		// shutdown.
		err := s.idx.Index(context.WithoutCancel(ctx), entry.DocumentID(), msg.Value)
		if err != nil {
			log.Errorf("[logsink][workerID:%d] failed to index document: %v", workerID, err)
			continue
		}
		log.Infof("[logsink][workerID:%d][%s] log entry indexed", workerID, shorten(entry.RequestID))
	}
	log.Infof("[logsink][workerID:%d] jobs channel closed, exiting worker", workerID)
}

// ESIndexer writes documents into one Elasticsearch index.
type ESIndexer struct {
	es    *elasticsearch.Client
	index string
}

func NewESIndexer(es *elasticsearch.Client, index string) *ESIndexer {
	return &ESIndexer{es: es, index: index}
}

func (i *ESIndexer) Index(ctx context.Context, id string, doc []byte) error {
	res, err := i.es.Index(
		i.index,
		bytes.NewReader(doc),
		i.es.Index.WithDocumentID(id),
		i.es.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch: %s", res.Status())
	}
	return nil
}

func shorten(s string) string {
	if len(s) > 6 {
		return s[:6] + "..."
	}
	return s
}
