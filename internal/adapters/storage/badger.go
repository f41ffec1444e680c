package storage

// badger.go: cache de rondas en BadgerDB.
//
// Cada Save escribe una generación nueva bajo "round/" + gen (8 bytes
// big-endian) + epoch (8 bytes big-endian), así la iteración por prefijo sale
// ordenada por epoch. La generación vigente vive en "meta/generation" y solo
// se cambia cuando la nueva está escrita entera: un Save que falla a medias
// deja la generación anterior intacta. Valor: RoundRecord en JSON.

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/predictbt/internal/domain"
	"github.com/dgraph-io/badger/v3"
)

var (
	roundPrefix   = []byte("round/")
	generationKey = []byte("meta/generation")
)

// BadgerCache implementa ports.RoundCache sobre BadgerDB.
type BadgerCache struct {
	db *badger.DB
}

// NewBadgerCache abre (o crea) la base de datos en el directorio dir.
func NewBadgerCache(dir string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(dir)
	// Sin el logger de Badger; los errores llegan igual por los retornos.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage.NewBadgerCache: open %q: %w", dir, err)
	}
	return &BadgerCache{db: db}, nil
}

func generationPrefix(gen uint64) []byte {
	p := make([]byte, len(roundPrefix)+8)
	copy(p, roundPrefix)
	binary.BigEndian.PutUint64(p[len(roundPrefix):], gen)
	return p
}

func roundKey(gen uint64, epoch int64) []byte {
	key := make([]byte, len(roundPrefix)+16)
	copy(key, generationPrefix(gen))
	binary.BigEndian.PutUint64(key[len(roundPrefix)+8:], uint64(epoch))
	return key
}

// generation devuelve la generación vigente; 0 si nunca se guardó nada.
func (b *BadgerCache) generation() (uint64, error) {
	var gen uint64
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(generationKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("generation value has %d bytes", len(val))
			}
			gen = binary.BigEndian.Uint64(val)
			return nil
		})
	})
	return gen, err
}

// Load recorre las rondas de la generación vigente.
// Un valor ilegible o inválido invalida la cache entera (se trata como vacía).
func (b *BadgerCache) Load(ctx context.Context) ([]domain.RoundRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gen, err := b.generation()
	if err != nil {
		return nil, fmt.Errorf("storage.BadgerCache.Load: generation: %w", err)
	}
	rounds := []domain.RoundRecord{}
	if gen == 0 {
		return rounds, nil
	}

	prefix := generationPrefix(gen)
	corrupt := false
	err = b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r domain.RoundRecord
			err := it.Item().Value(func(val []byte) error {
				if err := json.Unmarshal(val, &r); err != nil {
					return err
				}
				return r.Validate()
			})
			if err != nil {
				slog.Warn("storage: badger cache value is corrupt, starting empty", "key", fmt.Sprintf("%x", it.Item().Key()), "err", err)
				corrupt = true
				return nil
			}
			rounds = append(rounds, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage.BadgerCache.Load: %w", err)
	}
	if corrupt {
		return []domain.RoundRecord{}, nil
	}
	return rounds, nil
}

// Save escribe una generación nueva con un WriteBatch, la publica en una
// transacción y después borra la anterior.
func (b *BadgerCache) Save(ctx context.Context, rounds []domain.RoundRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prev, err := b.generation()
	if err != nil {
		return fmt.Errorf("storage.BadgerCache.Save: generation: %w", err)
	}
	next := prev + 1

	// Restos de un Save anterior que no llegó a publicarse.
	if err := b.db.DropPrefix(generationPrefix(next)); err != nil {
		return fmt.Errorf("storage.BadgerCache.Save: drop stale generation: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for _, r := range rounds {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("storage.BadgerCache.Save: marshal epoch %d: %w", r.Epoch, err)
		}
		if err := wb.Set(roundKey(next, r.Epoch), data); err != nil {
			return fmt.Errorf("storage.BadgerCache.Save: set epoch %d: %w", r.Epoch, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("storage.BadgerCache.Save: flush: %w", err)
	}

	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, next)
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(generationKey, val)
	}); err != nil {
		return fmt.Errorf("storage.BadgerCache.Save: publish generation %d: %w", next, err)
	}

	if prev > 0 {
		if err := b.db.DropPrefix(generationPrefix(prev)); err != nil {
			slog.Warn("storage: could not drop previous badger generation", "generation", prev, "err", err)
		}
	}
	return nil
}

// Close cierra la base de datos.
func (b *BadgerCache) Close() error {
	return b.db.Close()
}
