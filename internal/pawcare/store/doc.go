// Package store 提供宠物健康知识库的向量存储层。
//
// 该包定义了向量存储的接口抽象和基于 Milvus 的实现，
// 负责分批写入、相似度检索、清空与统计。
package store
