package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/echolist/backend-go/internal/config"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// KeywordDoc 条目的全文索引文档
type KeywordDoc struct {
	ItemID    uint   `json:"item_id"`
	SectionID uint   `json:"section_id"`
	Content   string `json:"content"`
	IsTask    bool   `json:"is_task"`
}

// KeywordMatch 关键词检索命中
type KeywordMatch struct {
	ItemID    uint    `json:"item_id"`
	SectionID uint    `json:"section_id"`
	Score     float64 `json:"score"`
	Fragment  string  `json:"fragment,omitempty"`
}

// KeywordIndex 基于Elasticsearch的条目全文索引
// 索引写入是尽力而为的，丢失只影响关键词检索的召回。
// 权限过滤在查询时通过 section_id terms 过滤完成。
type KeywordIndex struct {
	client *elasticsearch.Client
	index  string
}

// NewKeywordIndex 创建关键词索引，未启用时返回 (nil, nil)
func NewKeywordIndex(cfg config.KeywordSearchConfig) (*KeywordIndex, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("elasticsearch addresses not configured")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	prefix := cfg.IndexPrefix
	if prefix == "" {
		prefix = "echolist"
	}
	return &KeywordIndex{
		client: client,
		index:  prefix + "_items",
	}, nil
}

func (k *KeywordIndex) Ready() bool {
	return k != nil && k.client != nil
}

// IndexItem 写入或覆盖条目文档
func (k *KeywordIndex) IndexItem(ctx context.Context, doc KeywordDoc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      k.index,
		DocumentID: strconv.FormatUint(uint64(doc.ItemID), 10),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}
	resp, err := req.Do(ctx, k.client)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return fmt.Errorf("index document error: %s", resp.String())
	}
	return nil
}

// DeleteItem 删除条目文档，文档不存在不算错误
func (k *KeywordIndex) DeleteItem(ctx context.Context, itemID uint) error {
	req := esapi.DeleteRequest{
		Index:      k.index,
		DocumentID: strconv.FormatUint(uint64(itemID), 10),
	}
	resp, err := req.Do(ctx, k.client)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.IsError() && resp.StatusCode != 404 {
		return fmt.Errorf("delete document error: %s", resp.String())
	}
	return nil
}

// Search 在给定分区集合内做关键词匹配
// sectionIDs 为空直接返回空结果，不允许无过滤的全量查询。
func (k *KeywordIndex) Search(ctx context.Context, query string, sectionIDs []uint, limit int) ([]KeywordMatch, error) {
	if len(sectionIDs) == 0 {
		return []KeywordMatch{}, nil
	}

	searchQuery := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"match": map[string]interface{}{
							"content": map[string]interface{}{
								"query":    query,
								"operator": "and",
							},
						},
					},
				},
				"filter": []interface{}{
					map[string]interface{}{
						"terms": map[string]interface{}{
							"section_id": sectionIDs,
						},
					},
				},
			},
		},
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{
				"content": map[string]interface{}{
					"fragment_size":       150,
					"number_of_fragments": 1,
				},
			},
		},
	}

	data, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index: []string{k.index},
		Body:  bytes.NewReader(data),
	}
	resp, err := req.Do(ctx, k.client)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("search error: %s", resp.String())
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return parseKeywordHits(result), nil
}

func parseKeywordHits(result map[string]interface{}) []KeywordMatch {
	hits, _ := result["hits"].(map[string]interface{})
	hitList, _ := hits["hits"].([]interface{})

	matches := make([]KeywordMatch, 0, len(hitList))
	for _, hit := range hitList {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		match := KeywordMatch{}
		if score, ok := hitMap["_score"].(float64); ok {
			match.Score = score
		}
		if source, ok := hitMap["_source"].(map[string]interface{}); ok {
			if id, ok := source["item_id"].(float64); ok {
				match.ItemID = uint(id)
			}
			if id, ok := source["section_id"].(float64); ok {
				match.SectionID = uint(id)
			}
		}
		if highlight, ok := hitMap["highlight"].(map[string]interface{}); ok {
			if fragments, ok := highlight["content"].([]interface{}); ok && len(fragments) > 0 {
				if fragment, ok := fragments[0].(string); ok {
					match.Fragment = fragment
				}
			}
		}
		matches = append(matches, match)
	}
	return matches
}
