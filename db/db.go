package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"datachat/dataset"
	"datachat/models"

	"github.com/dgraph-io/badger/v4"
)

var ErrNotFound = errors.New("not found")

// DatasetRecord is a parsed upload together with the user's current selection.
type DatasetRecord struct {
	Dataset   *dataset.Dataset   `json:"dataset"`
	Selection *dataset.Selection `json:"selection"`
}

// DB keeps sessions, messages, datasets and chart results in badger.
//
// Key layout:
//
//	session:<id>                       ChatSession
//	msg:<session>:<unixnano>:<id>      Message, ordered by creation time
//	msgid:<id>                         key of the msg: entry
//	dataset:<messageID>                DatasetRecord
//	charts:<messageID>                 []ChartResult
//	qa:<messageID>                     []QAPair
type DB struct {
	badgerDB *badger.DB
}

func New(dbPath string) (*DB, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil

	badgerDB, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &DB{badgerDB: badgerDB}, nil
}

// NewInMemory opens a store that lives only for the process, used in tests.
func NewInMemory() (*DB, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	badgerDB, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return &DB{badgerDB: badgerDB}, nil
}

func (d *DB) Close() error {
	return d.badgerDB.Close()
}

// Ping performs an empty read transaction.
func (d *DB) Ping() error {
	return d.badgerDB.View(func(txn *badger.Txn) error { return nil })
}

func putJSON(txn *badger.Txn, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

func getJSON(txn *badger.Txn, key string, v interface{}) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func (d *DB) SaveSession(s *models.ChatSession) error {
	return d.badgerDB.Update(func(txn *badger.Txn) error {
		return putJSON(txn, "session:"+s.ID, s)
	})
}

func (d *DB) GetSession(id string) (*models.ChatSession, error) {
	var s models.ChatSession
	err := d.badgerDB.View(func(txn *badger.Txn) error {
		return getJSON(txn, "session:"+id, &s)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions returns sessions, most recently updated first.
func (d *DB) ListSessions() ([]models.ChatSession, error) {
	sessions := []models.ChatSession{}
	err := d.badgerDB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("session:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var s models.ChatSession
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &s)
			}); err != nil {
				return err
			}
			sessions = append(sessions, s)
		}
		return nil
	})
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt > sessions[j].UpdatedAt
	})
	return sessions, err
}

// DeleteSession removes the session, its messages and everything derived
// from them.
func (d *DB) DeleteSession(id string) error {
	return d.badgerDB.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte("session:" + id)); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("msg:" + id + ":")
		it := txn.NewIterator(opts)
		var ids []string
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			var m models.Message
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				it.Close()
				return err
			}
			ids = append(ids, m.ID)
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for _, mid := range ids {
			for _, prefix := range []string{"msgid:", "dataset:", "charts:", "qa:"} {
				if err := txn.Delete([]byte(prefix + mid)); err != nil {
					return err
				}
			}
		}
		return txn.Delete([]byte("session:" + id))
	})
}

func messageKey(m *models.Message, ts time.Time) string {
	return fmt.Sprintf("msg:%s:%020d:%s", m.SessionID, ts.UnixNano(), m.ID)
}

// SaveMessage inserts or updates a message. A message keeps the position it
// was first stored at.
func (d *DB) SaveMessage(m *models.Message) error {
	return d.badgerDB.Update(func(txn *badger.Txn) error {
		key := ""
		item, err := txn.Get([]byte("msgid:" + m.ID))
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error {
				key = string(val)
				return nil
			}); err != nil {
				return err
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			ts := time.Now()
			if t, perr := time.Parse(time.RFC3339Nano, m.CreatedAt); perr == nil {
				ts = t
			}
			key = messageKey(m, ts)
			if err := txn.Set([]byte("msgid:"+m.ID), []byte(key)); err != nil {
				return err
			}
		default:
			return err
		}
		return putJSON(txn, key, m)
	})
}

func (d *DB) GetMessage(id string) (*models.Message, error) {
	var m models.Message
	err := d.badgerDB.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("msgid:" + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var key string
		if err := item.Value(func(val []byte) error {
			key = string(val)
			return nil
		}); err != nil {
			return err
		}
		return getJSON(txn, key, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns a session's messages in creation order.
func (d *DB) ListMessages(sessionID string) ([]models.Message, error) {
	messages := []models.Message{}
	err := d.badgerDB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("msg:" + sessionID + ":")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var m models.Message
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			messages = append(messages, m)
		}
		return nil
	})
	return messages, err
}

func (d *DB) SaveDataset(messageID string, rec *DatasetRecord) error {
	return d.badgerDB.Update(func(txn *badger.Txn) error {
		return putJSON(txn, "dataset:"+messageID, rec)
	})
}

func (d *DB) GetDataset(messageID string) (*DatasetRecord, error) {
	var rec DatasetRecord
	err := d.badgerDB.View(func(txn *badger.Txn) error {
		return getJSON(txn, "dataset:"+messageID, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateSelection applies fn to the stored selection inside one transaction.
// When fn fails nothing is written.
func (d *DB) UpdateSelection(messageID string, fn func(*dataset.Dataset, *dataset.Selection) error) (*DatasetRecord, error) {
	var rec DatasetRecord
	err := d.badgerDB.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, "dataset:"+messageID, &rec); err != nil {
			return err
		}
		if rec.Selection == nil {
			rec.Selection = dataset.DefaultSelection(rec.Dataset)
		}
		if err := fn(rec.Dataset, rec.Selection); err != nil {
			return err
		}
		return putJSON(txn, "dataset:"+messageID, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveCharts replaces the chart results stored for a message.
func (d *DB) SaveCharts(messageID string, charts []models.ChartResult) error {
	return d.badgerDB.Update(func(txn *badger.Txn) error {
		return putJSON(txn, "charts:"+messageID, charts)
	})
}

func (d *DB) GetCharts(messageID string) ([]models.ChartResult, error) {
	charts := []models.ChartResult{}
	err := d.badgerDB.View(func(txn *badger.Txn) error {
		err := getJSON(txn, "charts:"+messageID, &charts)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	})
	return charts, err
}

// SetChartImage attaches a rendered image to the chart with the given index.
func (d *DB) SetChartImage(messageID string, index int, image string) (*models.ChartResult, error) {
	var updated models.ChartResult
	err := d.badgerDB.Update(func(txn *badger.Txn) error {
		var charts []models.ChartResult
		if err := getJSON(txn, "charts:"+messageID, &charts); err != nil {
			return err
		}
		for i := range charts {
			if charts[i].Index == index {
				charts[i].Image = image
				updated = charts[i]
				return putJSON(txn, "charts:"+messageID, charts)
			}
		}
		return ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (d *DB) SaveQAPairs(messageID string, pairs []models.QAPair) error {
	return d.badgerDB.Update(func(txn *badger.Txn) error {
		return putJSON(txn, "qa:"+messageID, pairs)
	})
}

func (d *DB) GetQAPairs(messageID string) ([]models.QAPair, error) {
	pairs := []models.QAPair{}
	err := d.badgerDB.View(func(txn *badger.Txn) error {
		err := getJSON(txn, "qa:"+messageID, &pairs)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	})
	return pairs, err
}
