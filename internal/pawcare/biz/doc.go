// Package biz 提供宠物健康分诊流水线的业务逻辑层。
//
// 该包将一次请求拆分为以下组件：
//   - Chunker / Embedder / Indexer: 文档切分、向量化与入库
//   - Classifier: 紧急程度分类，失败时降级为 UNCERTAIN
//   - ImageAnalyzer: 皮肤图像初步信号，失败时降级为说明性摘要
//   - Answerer: 基于检索上下文的单次 LLM 回答
//   - Assembler: 将以上结果组装为 StructuredResponse
//   - Pipeline: 组合以上组件，对上层暴露 IndexDocuments 与 GenerateResponse
package biz
