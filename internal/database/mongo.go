package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/dataset"
)

// MongoBackend answers catalogue endpoints from three collections
// (aircraft, vessels, activity_log) plus a relationships collection,
// mirroring the relational schema as documents.
type MongoBackend struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoBackend connects to dsn and ensures the lookup indexes exist.
func NewMongoBackend(ctx context.Context, dsn string) (*MongoBackend, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
	if err != nil {
		return nil, fmt.Errorf("database: connecting mongo: %w", err)
	}
	b := &MongoBackend{client: client, db: client.Database("benchmarkdb")}
	if err := b.ensureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return b, nil
}

func (b *MongoBackend) ensureIndexes(ctx context.Context) error {
	_, err := b.db.Collection("aircraft").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "country", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("database: creating mongo indexes: %w", err)
	}
	_, err = b.db.Collection("vessels").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "country", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("database: creating mongo indexes: %w", err)
	}
	_, err = b.db.Collection("activity_log").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "mmsi", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("database: creating mongo indexes: %w", err)
	}
	return nil
}

func (b *MongoBackend) Health(ctx context.Context) error {
	return b.client.Ping(ctx, nil)
}

type aircraftDoc struct {
	ModeS   string `bson:"_id"`
	Country string `bson:"country"`
	Model   string `bson:"model"`
}

type vesselDoc struct {
	MMSI    string `bson:"_id"`
	Country string `bson:"country"`
	Name    string `bson:"name"`
}

type activityDoc struct {
	TrackID      string    `bson:"_id"`
	EventType    string    `bson:"event_type"`
	Domain       string    `bson:"domain"`
	ModeS        string    `bson:"mode_s,omitempty"`
	MMSI         string    `bson:"mmsi,omitempty"`
	ActivityType string    `bson:"activity_type"`
	RecordedAt   time.Time `bson:"recorded_at"`
}

func (b *MongoBackend) LookupAircraft(ctx context.Context, modeS string) (AircraftRecord, error) {
	var doc aircraftDoc
	err := b.db.Collection("aircraft").FindOne(ctx, bson.M{"_id": modeS}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return AircraftRecord{}, ErrNotFound
	}
	if err != nil {
		return AircraftRecord{}, err
	}
	return AircraftRecord{ModeS: doc.ModeS, Country: doc.Country, Model: doc.Model}, nil
}

func (b *MongoBackend) LookupVessel(ctx context.Context, mmsi string) (VesselRecord, error) {
	var doc vesselDoc
	err := b.db.Collection("vessels").FindOne(ctx, bson.M{"_id": mmsi}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return VesselRecord{}, ErrNotFound
	}
	if err != nil {
		return VesselRecord{}, err
	}
	return VesselRecord{MMSI: doc.MMSI, Country: doc.Country, Name: doc.Name}, nil
}

func (b *MongoBackend) AircraftByCountry(ctx context.Context, country string) ([]AircraftRecord, error) {
	cur, err := b.db.Collection("aircraft").Find(ctx, bson.M{"country": country})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []aircraftDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]AircraftRecord, len(docs))
	for i, d := range docs {
		out[i] = AircraftRecord{ModeS: d.ModeS, Country: d.Country, Model: d.Model}
	}
	return out, nil
}

func (b *MongoBackend) ActivityByMMSI(ctx context.Context, mmsi string) ([]ActivityRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: -1}})
	cur, err := b.db.Collection("activity_log").Find(ctx, bson.M{"mmsi": mmsi}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeActivity(ctx, cur)
}

func decodeActivity(ctx context.Context, cur *mongo.Cursor) ([]ActivityRecord, error) {
	var docs []activityDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]ActivityRecord, len(docs))
	for i, d := range docs {
		out[i] = ActivityRecord{
			TrackID: d.TrackID, EventType: d.EventType, Domain: d.Domain,
			ModeS: d.ModeS, MMSI: d.MMSI, ActivityType: d.ActivityType, RecordedAt: d.RecordedAt,
		}
	}
	return out, nil
}

func (b *MongoBackend) CrossDomainByCountry(ctx context.Context, country string) (CrossDomainRecord, error) {
	return b.crossDomain(ctx, country, false)
}

func (b *MongoBackend) CrossDomainDeep(ctx context.Context, country string) (CrossDomainRecord, error) {
	return b.crossDomain(ctx, country, true)
}

func (b *MongoBackend) crossDomain(ctx context.Context, country string, deep bool) (CrossDomainRecord, error) {
	aircraft, err := b.AircraftByCountry(ctx, country)
	if err != nil || len(aircraft) == 0 {
		return CrossDomainRecord{}, err
	}
	rec := CrossDomainRecord{Aircraft: aircraft[0]}

	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: -1}}).SetLimit(25)
	cur, err := b.db.Collection("activity_log").Find(ctx, bson.M{"mode_s": rec.Aircraft.ModeS}, opts)
	if err != nil {
		return CrossDomainRecord{}, err
	}
	activity, err := decodeActivity(ctx, cur)
	cur.Close(ctx)
	if err != nil {
		return CrossDomainRecord{}, err
	}
	rec.Activity = activity

	mmsiSeen := map[string]bool{}
	for _, a := range activity {
		if a.MMSI != "" {
			mmsiSeen[a.MMSI] = true
		}
	}
	for mmsi := range mmsiSeen {
		if v, err := b.LookupVessel(ctx, mmsi); err == nil {
			rec.Vessels = append(rec.Vessels, v)
		}
	}

	if deep {
		countrySeen := map[string]bool{}
		for _, v := range rec.Vessels {
			if countrySeen[v.Country] {
				continue
			}
			countrySeen[v.Country] = true
			if extra, err := b.AircraftByCountry(ctx, v.Country); err == nil {
				rec.RelatedAircraft = append(rec.RelatedAircraft, extra...)
			}
		}
	}

	return rec, nil
}

func (b *MongoBackend) RecordActivity(ctx context.Context, payload dataset.WritePayload) error {
	doc := activityDoc{
		TrackID: payload.TrackID, EventType: payload.EventType, Domain: payload.Domain,
		ModeS: payload.ModeS, MMSI: payload.MMSI, ActivityType: payload.ActivityType, RecordedAt: time.Now(),
	}
	_, err := b.db.Collection("activity_log").ReplaceOne(ctx, bson.M{"_id": doc.TrackID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (b *MongoBackend) RecordRelationship(ctx context.Context, payload dataset.WritePayload) error {
	doc := activityDoc{
		TrackID: payload.TrackID, ModeS: payload.ModeS, MMSI: payload.MMSI,
		ActivityType: payload.ActivityType, RecordedAt: time.Now(),
	}
	_, err := b.db.Collection("relationships").ReplaceOne(ctx, bson.M{"_id": doc.TrackID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (b *MongoBackend) Close() error {
	return b.client.Disconnect(context.Background())
}
