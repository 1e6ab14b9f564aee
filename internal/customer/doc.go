// Package customer 实现寄件客户
//
// 客户向起始办公室登记一个一次性监听者，请求创建包裹并打印收到的每条事件，
// 第一条终态事件（delivered 或 lost）到达后返回。
//
// 追踪号从第一条事件中得知。若得知追踪号之后对起始办公室的调用失败，
// 客户自行打印 "lost by <origin> office"；若调用失败时尚未得知追踪号，返回错误。
package customer
