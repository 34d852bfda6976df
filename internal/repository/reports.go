package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/RishiKendai/argus/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	reportsCollection = "cluster_reports"
	auditCollection   = "ingest_audit"
)

type ReportsRepository struct {
	mongoRepo *MongoRepository
}

func NewReportsRepository(mongoRepo *MongoRepository) *ReportsRepository {
	return &ReportsRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *ReportsRepository) InsertClusterReport(ctx context.Context, report *models.ClusterReport) error {
	report.GeneratedAt = time.Now()

	err := r.mongoRepo.InsertOne(ctx, reportsCollection, report)
	if err != nil {
		return fmt.Errorf("failed to insert cluster report: %w", err)
	}

	return nil
}

func (r *ReportsRepository) GetLatestClusterReport(ctx context.Context) (*models.ClusterReport, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "generatedAt", Value: -1}})

	var report models.ClusterReport
	err := r.mongoRepo.FindOne(ctx, reportsCollection, bson.M{}, opts).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find cluster report: %w", err)
	}

	return &report, nil
}

func (r *ReportsRepository) InsertIngestAudit(ctx context.Context, audit *models.IngestAudit) error {
	audit.CreatedAt = time.Now()

	err := r.mongoRepo.InsertOne(ctx, auditCollection, audit)
	if err != nil {
		return fmt.Errorf("failed to insert ingest audit: %w", err)
	}

	return nil
}

func (r *ReportsRepository) GetIngestAudit(ctx context.Context, submissionID string) (*models.IngestAudit, error) {
	filter := bson.M{"submissionId": submissionID}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var audit models.IngestAudit
	err := r.mongoRepo.FindOne(ctx, auditCollection, filter, opts).Decode(&audit)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ingest audit: %w", err)
	}

	return &audit, nil
}

func (r *ReportsRepository) CountIngestAudits(ctx context.Context) (int64, error) {
	return r.mongoRepo.CountDocuments(ctx, auditCollection, bson.M{})
}
